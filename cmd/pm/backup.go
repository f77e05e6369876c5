package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/passvault/internal/db"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "List or restore vault snapshots",
	}
	cmd.AddCommand(newBackupListCmd(a), newBackupRestoreCmd(a))
	return cmd
}

// openKeeper opens the snapshot database for the backup commands. Unlike
// the other commands these do not need the vault to be readable.
func (a *app) openKeeper() (*db.Keeper, func(), error) {
	d, err := db.Open(a.cfg.BackupFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open backups: %w", err)
	}
	return db.NewKeeper(d, a.cfg.BackupKeep), func() { _ = db.Close(d) }, nil
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored snapshots, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, done, err := a.openKeeper()
			if err != nil {
				return err
			}
			defer done()

			snaps, err := k.List()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(a.out, "No snapshots stored.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTAKEN\tREASON\tCREDENTIALS\tBYTES")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", s.ID, formatTime(s.TakenAt), s.Reason, s.CredentialCount, s.Size)
			}
			return tw.Flush()
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the vault file with snapshot <id>",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return userError{msg: fmt.Sprintf("%q is not a snapshot id", args[0])}
			}

			k, done, err := a.openKeeper()
			if err != nil {
				return err
			}
			defer done()

			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Replace %s with snapshot %d?", a.cfg.VaultFile, id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Nothing restored.")
					return nil
				}
			}

			if err := k.Restore(id, a.vaultFile()); err != nil {
				if errors.Is(err, db.ErrSnapshotNotFound) {
					return userError{msg: fmt.Sprintf("no snapshot %d; run pm backup list", id)}
				}
				return err
			}
			a.log.Info().Int64("snapshot", id).Msg("vault restored")
			fmt.Fprintf(a.out, "Restored snapshot %d to %s\n", id, a.cfg.VaultFile)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
