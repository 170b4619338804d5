// ABOUTME: Entry point for the storefront command-line client
// ABOUTME: Builds the root cobra command and runs each subcommand against a started App

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/storefront/internal/config"
	"github.com/2389/storefront/internal/storefront"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	configFlag string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Shop the storefront API from the terminal",
	Long: `storefront is a client for the storefront REST API.

Cart, wishlist, orders and saved addresses are kept per signed-in account in
a local database, so switching accounts never mixes their state. Guests get
their own namespace.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (or set STOREFRONT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(loginCmd, loginGoogleCmd, logoutCmd, whoamiCmd, refreshCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(cartCmd, wishlistCmd, addressCmd, ordersCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(themeCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFunc is a subcommand body that receives a started App.
type runFunc func(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error

// withApp loads configuration, starts an App for the duration of fn, and
// closes it afterwards.
func withApp(fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		configPath := config.Path(configFlag)
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger := setupLogger(cfg.Logging, os.Stderr)
		logger.Debug("loaded config", "path", configPath, "api", cfg.API.BaseURL, "storage", cfg.Storage.Path)

		app, err := storefront.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating storefront: %w", err)
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("closing storefront", "error", err)
			}
		}()

		if err := app.Start(ctx); err != nil {
			return fmt.Errorf("starting storefront: %w", err)
		}
		return fn(ctx, app, cmd, args)
	}
}
