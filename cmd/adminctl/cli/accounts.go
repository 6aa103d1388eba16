package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/khabaroff/storefront-admin/src/models"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ---------- create ----------

func newCreateCmd(open openFunc) *cobra.Command {
	var (
		username    string
		password    string
		displayName string
		role        string
		grants      []string
		all         bool
		none        bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long:  "Create an account. The permission record must be given explicitly with --grant, --all or --none.",
		Example: `  adminctl create --username mod1 --grant products,categories
  adminctl create --username root --role admin --all  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			permissions, err := permissionsFromFlags(grants, all, none)
			if err != nil {
				return err
			}

			if password == "" {
				password, err = readPassword(cmd, true)
				if err != nil {
					return err
				}
			}

			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				account, err := b.admins.CreateAdmin(ctx, services.CreateAdminInput{
					Username:    username,
					Password:    password,
					DisplayName: displayName,
					Role:        role,
					Permissions: models.FlagsOf(permissions),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%s)\n", account.Role, account.Username, account.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to username)")
	cmd.Flags().StringVar(&role, "role", string(models.DefaultRole), "admin or moderator")
	cmd.Flags().StringSliceVar(&grants, "grant", nil, "capabilities to grant: "+capabilityList())
	cmd.Flags().BoolVar(&all, "all", false, "grant every capability")
	cmd.Flags().BoolVar(&none, "none", false, "grant no capability")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// ---------- list ----------

func newListCmd(open openFunc) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				accounts, err := b.admins.ListAdmins(ctx)
				if err != nil {
					return err
				}
				return printAccounts(cmd.OutOrStdout(), accounts, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printAccounts(out io.Writer, accounts []*models.AdminAccount, jsonOutput bool) error {
	if jsonOutput {
		if accounts == nil {
			accounts = []*models.AdminAccount{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(accounts)
	}

	if len(accounts) == 0 {
		fmt.Fprintln(out, "No admin accounts. Use 'adminctl create' to add one.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tCAPABILITIES\tID")
	for _, a := range accounts {
		caps := "all (role)"
		if !a.IsAdmin() {
			caps = strings.Join(capabilityStrings(a.Permissions.Granted()), ",")
			if caps == "" {
				caps = "-"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Username, a.Role, caps, a.ID)
	}
	return tw.Flush()
}

// ---------- set-permissions ----------

func newSetPermissionsCmd(open openFunc) *cobra.Command {
	var (
		grants []string
		all    bool
		none   bool
	)

	cmd := &cobra.Command{
		Use:   "set-permissions <username>",
		Short: "Replace an account's permission flags",
		Long:  "Replace the whole permission record. Capabilities not listed with --grant are revoked.",
		Example: `  adminctl set-permissions mod1 --grant orders,customers
  adminctl set-permissions mod1 --none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			permissions, err := permissionsFromFlags(grants, all, none)
			if err != nil {
				return err
			}

			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				account, err := b.admins.GetAdminByUsername(ctx, args[0])
				if err != nil {
					return err
				}
				account, err = b.admins.UpdatePermissions(ctx, account.ID, models.FlagsOf(permissions))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %q: %s\n", account.Username, describePermissions(account.Permissions))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&grants, "grant", nil, "capabilities to grant: "+capabilityList())
	cmd.Flags().BoolVar(&all, "all", false, "grant every capability")
	cmd.Flags().BoolVar(&none, "none", false, "revoke every capability")

	return cmd
}

// ---------- set-role ----------

func newSetRoleCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <admin|moderator>",
		Short: "Change an account's role",
		Long: `Change an account's role. Sessions issued before the change keep the old role
until they expire unless the server runs with SESSION_ROLE_SOURCE=store.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *backend) error {
				account, err := b.admins.GetAdminByUsername(ctx, args[0])
				if err != nil {
					return err
				}
				account, err = b.admins.UpdateRole(ctx, account.ID, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %q: role %s\n", account.Username, account.Role)
				return nil
			})
		},
	}
}

// ---------- helpers ----------

// errNoPermissionFlags is returned when a command would otherwise fall back
// to an implicit permission record
var errNoPermissionFlags = errors.New("specify --grant, --all or --none")

func permissionsFromFlags(grants []string, all, none bool) (models.Permissions, error) {
	if none && (all || len(grants) > 0) {
		return models.Permissions{}, fmt.Errorf("--none cannot be combined with --grant or --all")
	}
	if !none && !all && len(grants) == 0 {
		return models.Permissions{}, errNoPermissionFlags
	}
	if all {
		return models.AllPermissions(), nil
	}
	return models.PermissionsFromList(grants)
}

// readPassword prompts on a terminal, or reads one line when stdin is piped
func readPassword(cmd *cobra.Command, confirm bool) (string, error) {
	out := cmd.ErrOrStderr()

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if confirm {
			fmt.Fprint(out, "Confirm password: ")
			again, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", fmt.Errorf("failed to read confirmation: %w", err)
			}
			if string(pw) != string(again) {
				return "", fmt.Errorf("passwords do not match")
			}
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describePermissions(p models.Permissions) string {
	granted := capabilityStrings(p.Granted())
	if len(granted) == 0 {
		return "no capabilities"
	}
	return strings.Join(granted, ", ")
}

func capabilityStrings(caps []models.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}

func capabilityList() string {
	return strings.Join(capabilityStrings(models.Capabilities), ", ")
}
