package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/user"
)

func (cli *commandLine) login(ctx context.Context, email, password string) error {
	cli.adapter.Hydrate(ctx)

	ok, err := cli.adapter.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Invalid credentials.")
		return nil
	}

	usr, _ := cli.adapter.Current()
	fmt.Printf("Welcome back, %s (%s).\n", usr.Name, usr.Role)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	cli.adapter.Hydrate(ctx)
	if err := cli.adapter.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context) error {
	usr, err := cli.currentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> - %s (institution %s)\n", usr.Name, usr.Email, usr.Role, usr.InstitutionID)
	return nil
}

// currentUser hydrates the session and returns the signed-in identity.
func (cli *commandLine) currentUser(ctx context.Context) (user.User, error) {
	cli.adapter.Hydrate(ctx)
	usr, ok := cli.adapter.Current()
	if !ok {
		return user.User{}, errNotSignedIn
	}
	return usr, nil
}
