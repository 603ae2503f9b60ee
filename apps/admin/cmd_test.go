package main

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/user"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

func newTestCLI(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("newTestCLI() failed: %v", err)
	}
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: dummydb.NewUserRepository(db),
	}
}

func Test_commandLine_run_help(t *testing.T) {
	cli := newTestCLI(t)
	mockPassword("")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "frobnicate"}},
		{name: "adduser without email", args: []string{"admin", "adduser"}},
		{name: "adduser with empty password", args: []string{"admin", "adduser", "-email", "a@b.ke"}},
		{name: "resetpassword without email", args: []string{"admin", "resetpassword"}},
		{name: "migrate without command", args: []string{"admin", "migrate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, errHelp, cli.run(tt.args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := newTestCLI(t)
	ctx := context.Background()

	t.Run("creates a fresh admin", func(t *testing.T) {
		mockPassword("s3cr3t!")
		err := cli.run([]string{"admin", "adduser", "-email", "Boss@School.KE", "-name", "The Boss", "-institution", "inst1"})
		if err != nil {
			t.Fatalf("run() failed: %v", err)
		}

		usr, err := cli.usrRepo.GetUserByEmail(ctx, "boss@school.ke")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed: %v", err)
		}
		assert.Equal(t, "The Boss", usr.Name)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.Equal(t, "inst1", usr.InstitutionID)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("s3cr3t!"))
	})

	t.Run("existing email updates in place", func(t *testing.T) {
		mockPassword("changed!")
		err := cli.run([]string{"admin", "adduser", "-email", "boss@school.ke", "-name", "New Name"})
		if err != nil {
			t.Fatalf("run() failed: %v", err)
		}

		usr, err := cli.usrRepo.GetUserByEmail(ctx, "boss@school.ke")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed: %v", err)
		}
		assert.Equal(t, "New Name", usr.Name)
		assert.NoError(t, usr.CheckPassword("changed!"))
	})

	t.Run("invalid role", func(t *testing.T) {
		mockPassword("s3cr3t!")
		err := cli.run([]string{"admin", "adduser", "-email", "x@school.ke", "-role", "headmaster"})
		assert.Equal(t, user.ErrInvalidRole, err)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := newTestCLI(t)
	mockPassword("initial")
	if err := cli.run([]string{"admin", "adduser", "-email", "jane@school.ke", "-role", "teacher"}); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	t.Run("resets", func(t *testing.T) {
		mockPassword("brand-new")
		if err := cli.run([]string{"admin", "resetpassword", "-email", "jane@school.ke"}); err != nil {
			t.Fatalf("run() failed: %v", err)
		}

		usr, err := cli.usrRepo.GetUserByEmail(context.Background(), "jane@school.ke")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed: %v", err)
		}
		assert.NoError(t, usr.CheckPassword("brand-new"))
		assert.Error(t, usr.CheckPassword("initial"))
	})

	t.Run("unknown email", func(t *testing.T) {
		mockPassword("whatever")
		err := cli.run([]string{"admin", "resetpassword", "-email", "ghost@school.ke"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := newTestCLI(t)

	var gotCommand string
	var gotArgs []string
	gooseRunFunc = func(command string, _ *sql.DB, _ fs.FS, _ string, args ...string) error {
		gotCommand = command
		gotArgs = args
		return nil
	}

	if err := cli.run([]string{"admin", "migrate", "up-to", "20210102150405"}); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, []string{"20210102150405"}, gotArgs)
}
