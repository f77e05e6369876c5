package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/passvault/internal/service"
)

const cliVersion = "0.2.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	handleError(newRootCmd(a).Execute())
}

// handleError exits 1 for errors the user can act on and 2 for anything
// unexpected.
func handleError(err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

func exitStatus(err error) (int, string) {
	var uerr userError
	if errors.As(err, &uerr) {
		return 1, uerr.Error()
	}
	if service.Expected(err) {
		return 1, service.UserMessage(err)
	}
	return 2, fmt.Sprintf("unexpected error: %v", err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pm",
		Short:         "Local, offline password vault",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError{msg: err.Error()}
	})

	root.PersistentFlags().StringVar(&a.vaultPath, "vault", "", "vault file (overrides PASSVAULT_VAULT_FILE)")
	root.PersistentFlags().StringVar(&a.backupPath, "backups", "", "backup database (overrides PASSVAULT_BACKUP_FILE)")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug logging on stderr")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newViewCmd(a),
		newSearchCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newBackupCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pm version",
		Args:  exactArgs(0),
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, cliVersion)
		},
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return userError{msg: fmt.Sprintf("usage: %s", cmd.UseLine())}
		}
		return nil
	}
}
