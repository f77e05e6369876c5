package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/passvault/auth"
	"github.com/Hussein-Mazeh/passvault/internal/service"
)

const timeLayout = "2006-01-02 15:04"

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault protected by a master passphrase",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.openService()
			if err != nil {
				return err
			}
			defer done()

			if !svc.NeedsSetup() {
				return userError{msg: fmt.Sprintf("a vault already exists at %s", a.cfg.VaultFile)}
			}

			fmt.Fprintf(a.out, "Choose a master passphrase (at least %d characters).\n", auth.MinMasterLength)
			fmt.Fprintln(a.out, "It cannot be recovered if you forget it.")
			for {
				pass, err := a.readSecret("Master passphrase: ")
				if err != nil {
					return err
				}
				confirm, err := a.readSecret("Confirm master passphrase: ")
				if err != nil {
					return err
				}

				err = svc.Create(pass, confirm)
				if errors.Is(err, service.ErrInvalidInput) {
					fmt.Fprintln(a.errOut, service.UserMessage(err))
					continue
				}
				if err != nil {
					return err
				}
				a.printStrength(auth.EstimateStrength(pass))
				break
			}

			fmt.Fprintf(a.out, "Vault created at %s\n", a.cfg.VaultFile)
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var website, username string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a new credential",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.unlocked()
			if err != nil {
				return err
			}
			defer done()

			if website == "" {
				if website, err = a.readLine("Website/Application name: "); err != nil {
					return err
				}
			}
			if username == "" {
				if username, err = a.readLine("Username: "); err != nil {
					return err
				}
			}
			password, err := a.readSecret("Password: ")
			if err != nil {
				return err
			}

			in := service.AddInput{Website: website, Username: username, Password: password}
			c, err := svc.Add(in)
			if errors.Is(err, service.ErrDuplicate) {
				ok, cerr := a.confirm(fmt.Sprintf("A credential for %s / %s already exists. Add anyway?", strings.TrimSpace(website), strings.TrimSpace(username)))
				if cerr != nil {
					return cerr
				}
				if !ok {
					fmt.Fprintln(a.out, "Nothing added.")
					return nil
				}
				in.AllowDuplicate = true
				c, err = svc.Add(in)
			}
			if err != nil {
				return err
			}

			a.printStrength(auth.EstimateStrength(password, c.Website, c.Username))
			fmt.Fprintf(a.out, "Stored credential for %s / %s\n", c.Website, c.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&website, "website", "", "website or application name")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	return cmd
}

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show every credential with its password",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.unlocked()
			if err != nil {
				return err
			}
			defer done()

			entries, err := svc.View()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "No credentials stored.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tWEBSITE\tUSERNAME\tPASSWORD\tUPDATED")
			for _, e := range entries {
				pw := e.Password
				if e.Err != nil {
					pw = "<" + service.UserMessage(e.Err) + ">"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Position, e.Website, e.Username, pw, formatTime(e.UpdatedAt))
			}
			return tw.Flush()
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Find credentials by website or username",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := service.ParseField(by)
			if err != nil {
				return err
			}

			svc, done, err := a.unlocked()
			if err != nil {
				return err
			}
			defer done()

			matches, err := svc.Search(field, args[0])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintf(a.out, "No credentials match %q.\n", args[0])
				return nil
			}

			a.printSummaries(matches)
			byPos := make(map[int]service.Summary, len(matches))
			for _, m := range matches {
				byPos[m.Position] = m
			}

			for {
				ans, err := a.readLine("Reveal password for # (blank to finish): ")
				if err != nil || strings.TrimSpace(ans) == "" {
					return nil
				}
				n, perr := strconv.Atoi(strings.TrimSpace(ans))
				m, ok := byPos[n]
				if perr != nil || !ok {
					fmt.Fprintln(a.errOut, "Pick a # from the list above.")
					continue
				}
				pw, err := svc.Reveal(m.ID)
				if err != nil {
					fmt.Fprintf(a.errOut, "%s: %s\n", m.Website, service.UserMessage(err))
					continue
				}
				fmt.Fprintf(a.out, "%s / %s: %s\n", m.Website, m.Username, pw)
			}
		},
	}
	cmd.Flags().StringVar(&by, "by", "website", "field to search: website or username")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <n>",
		Short: "Change credential #n; blank input keeps the current value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.unlocked()
			if err != nil {
				return err
			}
			defer done()

			sel, err := pick(svc, args[0])
			if err != nil {
				return err
			}
			current, err := svc.Reveal(sel.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Current website:  %s\n", sel.Website)
			fmt.Fprintf(a.out, "Current username: %s\n", sel.Username)
			fmt.Fprintf(a.out, "Current password: %s\n", current)
			fmt.Fprintln(a.out, "Leave blank to keep the current value.")

			var in service.EditInput
			if in.Website, err = a.optionalLine(fmt.Sprintf("New website [%s]: ", sel.Website)); err != nil {
				return err
			}
			if in.Username, err = a.optionalLine(fmt.Sprintf("New username [%s]: ", sel.Username)); err != nil {
				return err
			}
			pw, err := a.readSecret("New password (blank keeps current): ")
			if err != nil {
				return err
			}
			if strings.TrimSpace(pw) != "" {
				in.Password = &pw
			}

			c, err := svc.Edit(sel.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated credential for %s / %s\n", c.Website, c.Username)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <n>",
		Short: "Remove credential #n after confirmation",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.unlocked()
			if err != nil {
				return err
			}
			defer done()

			sel, err := pick(svc, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Website:  %s\nUsername: %s\nCreated:  %s\n", sel.Website, sel.Username, formatTime(sel.CreatedAt))
			ok, err := a.confirm("Delete this credential?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Nothing deleted.")
				return nil
			}
			if err := svc.Delete(sel.ID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Credential deleted.")
			return nil
		},
	}
}

// pick resolves a 1-based list position to a credential.
func pick(svc *service.Service, arg string) (service.Summary, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return service.Summary{}, userError{msg: fmt.Sprintf("%q is not a credential number", arg)}
	}
	list, err := svc.List()
	if err != nil {
		return service.Summary{}, err
	}
	if n < 1 || n > len(list) {
		return service.Summary{}, userError{msg: fmt.Sprintf("no credential #%d (the vault holds %d)", n, len(list))}
	}
	return list[n-1], nil
}

// optionalLine returns nil for a blank answer.
func (a *app) optionalLine(prompt string) (*string, error) {
	s, err := a.readLine(prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return &s, nil
}

func (a *app) printSummaries(list []service.Summary) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tWEBSITE\tUSERNAME\tUPDATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Position, s.Website, s.Username, formatTime(s.UpdatedAt))
	}
	_ = tw.Flush()
}

func (a *app) printStrength(s auth.Strength) {
	if s.Weak() {
		fmt.Fprintf(a.errOut, "Warning: weak password (score %d/4, cracked in %s).\n", s.Score, s.CrackTime)
		return
	}
	fmt.Fprintf(a.out, "Password strength: %d/4\n", s.Score)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
