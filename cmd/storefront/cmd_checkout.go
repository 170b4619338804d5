// ABOUTME: Checkout commands: hand off to the payment page, confirm, cancel, and sign test confirmations
// ABOUTME: An order is recorded only by confirm, with a signed confirmation for the pending checkout

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/storefront/internal/checkout"
	"github.com/2389/storefront/internal/receipt"
	"github.com/2389/storefront/internal/storefront"
)

var signExpiry time.Duration

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Pay for the cart",
	Long: `Pay for the cart on the hosted payment page.

  checkout begin    records a pending checkout and prints the payment URL
  checkout confirm  completes it with the signed confirmation from the
                    payment provider; only then is the order recorded
  checkout cancel   abandons the pending checkout`,
	Args: cobra.NoArgs,
	RunE: withApp(runCheckoutStatus),
}

var checkoutBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Start a checkout and print the payment URL",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCheckoutBegin),
}

var checkoutConfirmCmd = &cobra.Command{
	Use:   "confirm <token>",
	Short: "Complete the pending checkout with a signed confirmation",
	Long: `Complete the pending checkout. The token is the signed confirmation
delivered by the payment provider; pass "-" to read it from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runCheckoutConfirm),
}

var checkoutCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon the pending checkout",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCheckoutCancel),
}

var checkoutSignCmd = &cobra.Command{
	Use:    "sign",
	Short:  "Sign a paid confirmation for the pending checkout (testing)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   withApp(runCheckoutSign),
}

func init() {
	checkoutSignCmd.Flags().DurationVar(&signExpiry, "expires-in", 15*time.Minute, "Confirmation lifetime")
	checkoutCmd.AddCommand(checkoutBeginCmd, checkoutConfirmCmd, checkoutCancelCmd, checkoutSignCmd)
}

func runCheckoutStatus(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	svc, err := app.Checkout()
	if err != nil {
		return err
	}
	p, ok := svc.Pending(ctx)
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending checkout")
		return nil
	}
	printPending(cmd.OutOrStdout(), p)
	return nil
}

func runCheckoutBegin(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	svc, err := app.Checkout()
	if err != nil {
		return err
	}
	p, err := svc.Begin(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printPending(out, p)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Open the payment page to pay:")
	color.New(color.FgCyan, color.Underline).Fprintln(out, p.PaymentURL)
	return nil
}

func runCheckoutConfirm(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	svc, err := app.Checkout()
	if err != nil {
		return err
	}

	token := args[0]
	if token == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	order, err := svc.Confirm(ctx, token)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen).Fprint(out, "✓ ")
	fmt.Fprintf(out, "Payment confirmed. Order %s, total %s\n", order.ID, receipt.Money(order.Total))
	return nil
}

func runCheckoutCancel(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	svc, err := app.Checkout()
	if err != nil {
		return err
	}
	svc.Cancel(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Checkout cancelled")
	return nil
}

func runCheckoutSign(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	svc, err := app.Checkout()
	if err != nil {
		return err
	}
	p, ok := svc.Pending(ctx)
	if !ok {
		return checkout.ErrNoPendingCheckout
	}

	verifier := checkout.NewVerifier([]byte(app.Config().Checkout.CallbackSecret))
	token, err := verifier.Sign(p.ID, checkout.StatusPaid, p.AmountCents, signExpiry)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func printPending(w io.Writer, p *checkout.Pending) {
	gray := color.New(color.FgHiBlack)
	gray.Fprint(w, "checkout: ")
	fmt.Fprintln(w, p.ID)
	gray.Fprint(w, "amount:   ")
	fmt.Fprintf(w, "%s (%d items)\n", receipt.Money(float64(p.AmountCents)/100), p.Items)
	gray.Fprint(w, "started:  ")
	fmt.Fprintln(w, p.CreatedAt.Local().Format(time.DateTime))
}
