package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/forma/core/tracking"
	"github.com/trezcool/forma/core/user"
	"github.com/trezcool/forma/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	usrRepo  user.Repository
	trackSvc tracking.Service
	out      io.Writer
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	w := cli.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, format, a...)
}

// promptPassword reads a password without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Forma administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	if cli.out != nil {
		root.SetOut(cli.out)
		root.SetErr(cli.out)
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migrations command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}

	var uname, email string
	var isAdmin bool
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user; the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addUser(cmd.Context(), uname, email, pwd, isAdmin)
		},
	}
	addUserCmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username")
	addUserCmd.Flags().StringVarP(&email, "email", "e", "", "The user's email")
	addUserCmd.Flags().BoolVar(&isAdmin, "admin", false, "Give the user every role")

	var resetUname string
	resetPasswordCmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetUname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.resetPassword(cmd.Context(), resetUname, pwd)
		},
	}
	resetPasswordCmd.Flags().StringVarP(&resetUname, "username", "u", "", "The user's username or email")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load default data",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	seedCmd.AddCommand(&cobra.Command{
		Use:   "achievements",
		Short: "Create the default achievements missing from the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.seedAchievements(cmd.Context())
		},
	})

	root.AddCommand(migrateCmd, addUserCmd, resetPasswordCmd, seedCmd)
	return root
}

// run executes the command named by args (args[0] being the program name).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}
