// ABOUTME: Commands for the per-identity collections: cart, wishlist, addresses, orders
// ABOUTME: Every command operates on the namespace of whoever is signed in, or the guest

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/storefront/internal/address"
	"github.com/2389/storefront/internal/cart"
	"github.com/2389/storefront/internal/receipt"
	"github.com/2389/storefront/internal/storefront"
	"github.com/2389/storefront/internal/wishlist"
)

var (
	cartSize     string
	cartQuantity int

	addressFlags struct {
		street     string
		city       string
		postalCode string
		lat        float64
		lng        float64
	}

	receiptFormat string
	receiptOut    string
)

// Cart

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and edit the cart",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCartShow),
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Long: `Add a product to the cart. The same product in the same size is merged
into one line and its quantity increased.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runCartAdd),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a line from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runCartRemove),
}

var cartSetCmd = &cobra.Command{
	Use:   "set <product-id> <quantity>",
	Short: "Set the quantity of a line (0 removes it)",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runCartSet),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE:  withApp(runCartClear),
}

// Wishlist

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Show and edit the wishlist",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWishlistShow),
}

var wishlistAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Save a product to the wishlist",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWishlistAdd),
}

var wishlistRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product from the wishlist",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runWishlistRemove),
}

var wishlistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the wishlist",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWishlistClear),
}

// Addresses

var addressCmd = &cobra.Command{
	Use:     "address",
	Aliases: []string{"addresses"},
	Short:   "Manage delivery addresses",
	Args:    cobra.NoArgs,
	RunE:    withApp(runAddressList),
}

var addressAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a delivery address",
	Args:  cobra.NoArgs,
	RunE:  withApp(runAddressAdd),
}

var addressRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a saved address",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runAddressRemove),
}

var addressSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Choose the address new orders are delivered to",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runAddressSelect),
}

// Orders

var ordersCmd = &cobra.Command{
	Use:     "orders",
	Aliases: []string{"order"},
	Short:   "Show order history",
	Args:    cobra.NoArgs,
	RunE:    withApp(runOrdersList),
}

var ordersShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show the receipt for an order",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runOrdersShow),
}

var ordersDeleteCmd = &cobra.Command{
	Use:   "delete <order-id>",
	Short: "Delete an order from the history",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runOrdersDelete),
}

func init() {
	cartAddCmd.Flags().StringVar(&cartSize, "size", "", "Size")
	cartAddCmd.Flags().IntVarP(&cartQuantity, "quantity", "q", 1, "Quantity")
	cartRemoveCmd.Flags().StringVar(&cartSize, "size", "", "Size")
	cartSetCmd.Flags().StringVar(&cartSize, "size", "", "Size")
	cartCmd.AddCommand(cartAddCmd, cartRemoveCmd, cartSetCmd, cartClearCmd)

	wishlistCmd.AddCommand(wishlistAddCmd, wishlistRemoveCmd, wishlistClearCmd)

	addressAddCmd.Flags().StringVar(&addressFlags.street, "street", "", "Street and number")
	addressAddCmd.Flags().StringVar(&addressFlags.city, "city", "", "City")
	addressAddCmd.Flags().StringVar(&addressFlags.postalCode, "postal-code", "", "Postal code")
	addressAddCmd.Flags().Float64Var(&addressFlags.lat, "lat", 0, "Latitude")
	addressAddCmd.Flags().Float64Var(&addressFlags.lng, "lng", 0, "Longitude")
	addressAddCmd.MarkFlagRequired("street")
	addressCmd.AddCommand(addressAddCmd, addressRemoveCmd, addressSelectCmd)

	ordersShowCmd.Flags().StringVar(&receiptFormat, "format", "term", "Receipt format: term, markdown, html")
	ordersShowCmd.Flags().StringVarP(&receiptOut, "output", "o", "", "Write the receipt to a file instead of stdout")
	ordersCmd.AddCommand(ordersShowCmd, ordersDeleteCmd)
}

func runCartShow(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	items := app.Cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, l := range items {
		rows = append(rows, []string{
			strconv.Itoa(l.ProductID), l.Title, l.Size,
			strconv.Itoa(l.Quantity), receipt.Money(l.UnitPrice), receipt.Money(l.Subtotal()),
		})
	}
	printTable(out, app.Theme.Mode(), []string{"ID", "Title", "Size", "Qty", "Price", "Subtotal"}, rows)
	color.New(color.Bold).Fprintf(out, "%d items, subtotal %s\n", app.Cart.Count(), receipt.Money(app.Cart.Subtotal()))

	if a := app.Addresses.Selected(); a != nil {
		color.New(color.FgHiBlack).Fprintf(out, "Delivering to %s\n", formatAddress(*a))
	}
	return nil
}

func runCartAdd(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := app.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}

	item := cart.LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		UnitPrice: p.Price,
		Size:      cartSize,
		Quantity:  cartQuantity,
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	app.Cart.Add(ctx, item)

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d items in cart)\n", p.Title, app.Cart.Count())
	return nil
}

func runCartRemove(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	app.Cart.Remove(ctx, id, cartSize)
	return runCartShow(ctx, app, cmd, nil)
}

func runCartSet(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	app.Cart.UpdateQuantity(ctx, id, cartSize, qty)
	return runCartShow(ctx, app, cmd, nil)
}

func runCartClear(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	app.Cart.Clear(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
	return nil
}

func runWishlistShow(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	items := app.Wishlist.Items()
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Wishlist is empty")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.Itoa(it.ProductID), it.Title, receipt.Money(it.Price)})
	}
	printTable(cmd.OutOrStdout(), app.Theme.Mode(), []string{"ID", "Title", "Price"}, rows)
	return nil
}

func runWishlistAdd(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := app.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}

	item := wishlist.Item{ProductID: p.ID, Title: p.Title, Price: p.Price}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	if !app.Wishlist.Add(ctx, item) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already on the wishlist\n", p.Title)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", p.Title)
	return nil
}

func runWishlistRemove(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	app.Wishlist.Remove(ctx, id)
	return runWishlistShow(ctx, app, cmd, nil)
}

func runWishlistClear(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	app.Wishlist.Clear(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Wishlist cleared")
	return nil
}

func runAddressList(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	all := app.Addresses.All()
	if len(all) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved addresses")
		return nil
	}

	selected := ""
	if a := app.Addresses.Selected(); a != nil {
		selected = a.ID
	}
	rows := make([][]string, 0, len(all))
	for _, a := range all {
		mark := ""
		if a.ID == selected {
			mark = "●"
		}
		rows = append(rows, []string{mark, a.ID, a.Street, a.City, a.PostalCode})
	}
	printTable(cmd.OutOrStdout(), app.Theme.Mode(), []string{"", "ID", "Street", "City", "Postal code"}, rows)
	return nil
}

func runAddressAdd(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	a := address.Address{
		Street:     addressFlags.street,
		City:       addressFlags.city,
		PostalCode: addressFlags.postalCode,
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		a.Location = &address.GeoPoint{Lat: addressFlags.lat, Lng: addressFlags.lng}
	}

	saved, err := app.Addresses.Add(ctx, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved address %s\n", saved.ID)
	return nil
}

func runAddressRemove(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	app.Addresses.Remove(ctx, args[0])
	return runAddressList(ctx, app, cmd, nil)
}

func runAddressSelect(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	if !app.Addresses.Select(ctx, args[0]) {
		return fmt.Errorf("no saved address %q", args[0])
	}
	return runAddressList(ctx, app, cmd, nil)
}

func runOrdersList(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	orders := app.Cart.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No orders yet")
		return nil
	}

	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		items := 0
		for _, l := range o.Items {
			items += l.Quantity
		}
		rows = append(rows, []string{o.ID, humanize.Time(o.Date), strconv.Itoa(items), receipt.Money(o.Total)})
	}
	printTable(cmd.OutOrStdout(), app.Theme.Mode(), []string{"Order", "Placed", "Items", "Total"}, rows)
	return nil
}

func runOrdersShow(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	order, ok := app.Cart.Order(args[0])
	if !ok {
		return fmt.Errorf("no order %q", args[0])
	}

	var body string
	switch receiptFormat {
	case "term":
		body = renderMarkdown(app.Theme.Mode(), receipt.Markdown(order))
	case "markdown", "md":
		body = receipt.Markdown(order)
	case "html":
		html, err := receipt.HTML(order)
		if err != nil {
			return err
		}
		body = html
	default:
		return fmt.Errorf("unknown receipt format %q (want term, markdown or html)", receiptFormat)
	}

	if receiptOut != "" {
		if err := os.WriteFile(receiptOut, []byte(body), 0644); err != nil {
			return fmt.Errorf("writing receipt: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", receiptOut)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), body)
	return nil
}

func runOrdersDelete(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	if !app.Cart.DeleteOrder(ctx, args[0]) {
		return fmt.Errorf("no order %q", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted order %s\n", args[0])
	return nil
}

func formatAddress(a address.Address) string {
	s := a.Street
	if a.City != "" {
		s += ", " + a.City
	}
	if a.PostalCode != "" {
		s += " " + a.PostalCode
	}
	return s
}
