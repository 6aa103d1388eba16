// Package cli implements adminctl, the operator tool for provisioning admin
// accounts directly against the credential store.
package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/khabaroff/storefront-admin/src/app"
	"github.com/khabaroff/storefront-admin/src/config"
	"github.com/khabaroff/storefront-admin/src/logging"
	"github.com/khabaroff/storefront-admin/src/services"
	"github.com/spf13/cobra"
)

// backend is what the commands operate on
type backend struct {
	admins *services.AdminService
	close  func()
}

// openFunc opens the backend for one command run
type openFunc func(ctx context.Context) (*backend, error)

// rootOptions are the persistent flags
type rootOptions struct {
	envFile     string
	storeDriver string
	logLevel    string
}

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	opts := &rootOptions{}
	return newRootCmd(version, opts, opts.openStore).Execute()
}

func newRootCmd(version string, opts *rootOptions, open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "adminctl",
		Short:   "Manage storefront admin accounts",
		Version: version,
		Long: `adminctl provisions dashboard operator accounts and edits their role and
permissions directly in the credential store selected by STORE_DRIVER.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.Config{
				Level:  opts.logLevel,
				Format: "pretty",
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.storeDriver, "store", "", "override STORE_DRIVER (postgres, mongo)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(newCreateCmd(open))
	cmd.AddCommand(newListCmd(open))
	cmd.AddCommand(newSetPermissionsCmd(open))
	cmd.AddCommand(newSetRoleCmd(open))

	return cmd
}

func (o *rootOptions) openStore(ctx context.Context) (*backend, error) {
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err == nil {
			if err := godotenv.Load(o.envFile); err != nil {
				return nil, err
			}
		}
	}

	cfg := config.Load()
	if o.storeDriver != "" {
		cfg.StoreDriver = o.storeDriver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &backend{
		admins: services.NewAdminService(store.Repo, services.NewBcryptHasher(cfg.BcryptCost)),
		close:  store.Close,
	}, nil
}

func withBackend(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, b *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}
