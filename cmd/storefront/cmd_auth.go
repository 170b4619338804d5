// ABOUTME: Session commands: login, external-credential login, logout, whoami, refresh
// ABOUTME: Each transition switches the identity namespace the other commands operate on

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/2389/storefront/internal/storefront"
)

var loginPassword string

// loginCmd signs in with email and password
var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in with email and password",
	Long: `Sign in to the storefront API.

The password is taken from --password, then STOREFRONT_PASSWORD, and is
prompted for otherwise. After signing in the profile is fetched and the
cart, wishlist, orders and addresses of that account become active.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runLogin),
}

// loginGoogleCmd signs in with an identity provider credential
var loginGoogleCmd = &cobra.Command{
	Use:   "login-google <credential>",
	Short: "Sign in with a Google ID token",
	Long: `Sign in with a credential issued by Google Sign-In.

The credential is a JWT; its subject (or email) selects the account
namespace. Pass "-" to read it from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runLoginGoogle),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and switch to the guest namespace",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active session and identity",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWhoami),
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the catalog and profile",
	Args:  cobra.NoArgs,
	RunE:  withApp(runRefresh),
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (or set STOREFRONT_PASSWORD)")
}

func runLogin(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("STOREFRONT_PASSWORD")
	}
	if password == "" {
		password = readPassword(cmd)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if err := app.Session.Login(ctx, args[0], password); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprint(out, "✓ ")
	fmt.Fprintf(out, "Signed in as %s\n", args[0])
	return nil
}

func runLoginGoogle(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	credential := args[0]
	if credential == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading credential: %w", err)
		}
		credential = strings.TrimSpace(string(data))
	}

	if err := app.Session.LoginWithCredential(ctx, credential); err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprint(out, "✓ ")
	fmt.Fprintf(out, "Signed in as %s\n", app.Resolver.Current())
	return nil
}

func runLogout(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	app.Session.Logout(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	snap := app.Session.State()
	label := color.New(color.FgHiBlack)

	label.Fprint(out, "identity:  ")
	fmt.Fprintln(out, app.Resolver.Current())

	label.Fprint(out, "signed in: ")
	fmt.Fprintln(out, snap.Authenticated())

	if snap.External != nil {
		label.Fprint(out, "google:    ")
		fmt.Fprintf(out, "%s <%s>\n", snap.External.Name, snap.External.Email)
	}
	if snap.Profile != nil {
		label.Fprint(out, "profile:   ")
		fmt.Fprintf(out, "#%d %s <%s> (%s)\n", snap.Profile.ID, snap.Profile.Name, snap.Profile.Email, snap.Profile.Role)
	} else if snap.Authenticated() && snap.External == nil {
		label.Fprint(out, "profile:   ")
		fmt.Fprintln(out, "not loaded (run refresh)")
	}
	if snap.Error != "" {
		label.Fprint(out, "error:     ")
		color.New(color.FgRed).Fprintln(out, snap.Error)
	}
	if slots := app.Scoped.Collections(ctx); len(slots) > 0 {
		label.Fprint(out, "stored:    ")
		fmt.Fprintln(out, strings.Join(slots, ", "))
	}
	return nil
}

func runRefresh(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	if err := app.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d products, identity %s\n", len(app.Catalog.Snapshot().Items), app.Resolver.Current())
	return nil
}

// readPassword prompts for a password, without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return ""
		}
		return string(pw)
	}
	return prompt(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password", "")
}

// prompt asks a question on w and reads a line from reader.
func prompt(reader *bufio.Reader, w io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(w, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(w, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
