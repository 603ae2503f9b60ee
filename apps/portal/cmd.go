package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/payment"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotSignedIn = errors.New("not signed in; run `portal login` first")
)

type commandLine struct {
	conf    *core.Config
	logger  core.Logger
	adapter *auth.Adapter
	paySvc  *payment.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  login -email EMAIL - sign in; the password will be prompted")
	fmt.Println("  logout - sign out and forget the session")
	fmt.Println("  whoami - show the signed-in identity")
	fmt.Println("  plans - list the fee schedule")
	fmt.Println("  history - list past payment attempts")
	fmt.Println("  stats - show totals and the next due date")
	fmt.Println("  pay -plan PLAN_ID -phone PHONE - pay a fee via M-PESA")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The account's email. The password will be prompted next.")

	payCmd := flag.NewFlagSet("pay", flag.ExitOnError)
	payPlan := payCmd.String("plan", "", "The payment plan to pay.")
	payPhone := payCmd.String("phone", "", "The M-PESA phone number to charge.")

	ctx := context.Background()

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, string(pwd))
	case "logout":
		return cli.logout(ctx)
	case "whoami":
		return cli.whoami(ctx)
	case "plans":
		return cli.plans(ctx)
	case "history":
		return cli.history(ctx)
	case "stats":
		return cli.stats(ctx)
	case "pay":
		if err := payCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *payPlan == "" {
			payCmd.Usage()
			return errHelp
		}
		return cli.pay(ctx, *payPlan, *payPhone)
	default:
		cli.printUsage()
		return errHelp
	}
}
