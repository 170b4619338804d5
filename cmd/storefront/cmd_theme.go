// ABOUTME: Theme commands: show, set, and toggle the light/dark preference
// ABOUTME: The preference is device-wide and styles tables and receipts

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/storefront/internal/storefront"
	"github.com/2389/storefront/internal/theme"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show the display theme",
	Args:  cobra.NoArgs,
	RunE:  withApp(runThemeShow),
}

var themeSetCmd = &cobra.Command{
	Use:       "set <light|dark>",
	Short:     "Set the display theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(theme.Light), string(theme.Dark)},
	RunE:      withApp(runThemeSet),
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between light and dark",
	Args:  cobra.NoArgs,
	RunE:  withApp(runThemeToggle),
}

func init() {
	themeCmd.AddCommand(themeSetCmd, themeToggleCmd)
}

func runThemeShow(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), app.Theme.Mode())
	return nil
}

func runThemeSet(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	mode, err := theme.Parse(args[0])
	if err != nil {
		return err
	}
	if err := app.Theme.Set(ctx, mode); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), mode)
	return nil
}

func runThemeToggle(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), app.Theme.Toggle(ctx))
	return nil
}
