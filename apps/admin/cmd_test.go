package main

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhyasetu/backend/core/user"
	testutil "github.com/vidhyasetu/backend/tests"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	// migrations are mocked, the users live in memory
	return &commandLine{usrRepo: testutil.InMemStores().Users}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (cli *commandLine) runTests(t *testing.T, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, command string, _ *sqlx.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	cli.runTests(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "timetable", "sql"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, cli.usrRepo, user.RoleTeacher, "meera", "meera@school.test", "Ch@lkDust42", true)

	cli.runTests(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no username", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "principal"}, wantErr: errHelp},
		{name: "students are registered", args: []string{"adduser", "-username", "kid", "-role", "student"}, pwd: "x", wantErrStr: "role must be admin or teacher"},
		{name: "email taken", args: []string{"adduser", "-username", "principal", "-email", "meera@school.test"}, pwd: "Pr1ncipal!", wantErr: user.ErrEmailExists},
		{name: "create admin", args: []string{"adduser", "-username", "Principal", "-email", "principal@school.test", "-first", "Lakshmi"}, pwd: "Pr1ncipal!"},
		{name: "promote existing", args: []string{"adduser", "-username", "meera", "-email", "meera@school.test", "-role", "admin"}, pwd: "N3w!secret"},
	})

	principal, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "principal"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, principal.Role)
	assert.Equal(t, "Lakshmi", principal.FirstName)
	assert.True(t, principal.IsActive)
	assert.NoError(t, principal.CheckPassword("Pr1ncipal!"))

	meera, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "meera"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, meera.Role)
	assert.NoError(t, meera.CheckPassword("N3w!secret"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, cli.usrRepo, user.RoleTeacher, "awe", "awe@school.test", "Old!pass1", true)

	cli.runTests(t, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@school.test"}, pwd: "lmao"},
	})

	refreshed, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
	assert.False(t, refreshed.MustChangePassword)
}
