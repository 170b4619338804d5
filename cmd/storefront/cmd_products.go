// ABOUTME: Catalog commands: list and show products, and admin create/update/delete
// ABOUTME: Mutations require a signed-in session and keep the cached list in sync

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/storefront/internal/api"
	"github.com/2389/storefront/internal/receipt"
	"github.com/2389/storefront/internal/storefront"
)

var productFlags struct {
	title       string
	price       float64
	description string
	categoryID  int
	images      []string
}

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Browse and manage the product catalog",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProductsList),
}

var productsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runProductsShow),
}

var productsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a product (requires login)",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProductsCreate),
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a product (requires login)",
	Long: `Update a product. Only the flags given are sent; everything else is left
as it is.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runProductsUpdate),
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product (requires login)",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runProductsDelete),
}

func init() {
	for _, c := range []*cobra.Command{productsCreateCmd, productsUpdateCmd} {
		c.Flags().StringVar(&productFlags.title, "title", "", "Product title")
		c.Flags().Float64Var(&productFlags.price, "price", 0, "Unit price")
		c.Flags().StringVar(&productFlags.description, "description", "", "Description")
		c.Flags().IntVar(&productFlags.categoryID, "category", 0, "Category id")
		c.Flags().StringSliceVar(&productFlags.images, "image", nil, "Image URL (repeatable)")
	}
	productsCreateCmd.MarkFlagRequired("title")
	productsCreateCmd.MarkFlagRequired("price")
	productsCreateCmd.MarkFlagRequired("category")

	productsCmd.AddCommand(productsListCmd, productsShowCmd, productsCreateCmd, productsUpdateCmd, productsDeleteCmd)
}

func runProductsList(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	if err := app.Catalog.Fetch(ctx); err != nil {
		return err
	}

	items := app.Catalog.Snapshot().Items
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No products")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, p := range items {
		wish := ""
		if app.Wishlist.Contains(p.ID) {
			wish = "♥"
		}
		rows = append(rows, []string{strconv.Itoa(p.ID), p.Title, receipt.Money(p.Price), p.Category.Name, wish})
	}
	printTable(cmd.OutOrStdout(), app.Theme.Mode(), []string{"ID", "Title", "Price", "Category", ""}, rows)
	return nil
}

func runProductsShow(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := app.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	printProduct(cmd, p)
	return nil
}

func runProductsCreate(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	p, err := app.Catalog.Create(ctx, api.ProductInput{
		Title:       productFlags.title,
		Price:       productFlags.price,
		Description: productFlags.description,
		CategoryID:  productFlags.categoryID,
		Images:      productFlags.images,
	})
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
	fmt.Fprintf(cmd.OutOrStdout(), "Created product %d\n", p.ID)
	return nil
}

func runProductsUpdate(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var patch api.ProductPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &productFlags.title
	}
	if flags.Changed("price") {
		patch.Price = &productFlags.price
	}
	if flags.Changed("description") {
		patch.Description = &productFlags.description
	}
	if flags.Changed("category") {
		patch.CategoryID = &productFlags.categoryID
	}
	if flags.Changed("image") {
		patch.Images = &productFlags.images
	}
	if patch == (api.ProductPatch{}) {
		return fmt.Errorf("nothing to update")
	}

	p, err := app.Catalog.Update(ctx, id, patch)
	if err != nil {
		return err
	}
	printProduct(cmd, p)
	return nil
}

func runProductsDelete(ctx context.Context, app *storefront.App, cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := app.Catalog.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted product %d\n", id)
	return nil
}

func printProduct(cmd *cobra.Command, p *api.Product) {
	out := cmd.OutOrStdout()
	color.New(color.Bold).Fprintf(out, "%s", p.Title)
	fmt.Fprintf(out, "  %s\n", receipt.Money(p.Price))
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(out, "#%d · %s\n", p.ID, p.Category.Name)
	if p.Description != "" {
		fmt.Fprintln(out, p.Description)
	}
	if len(p.Images) > 0 {
		gray.Fprintln(out, strings.Join(p.Images, "\n"))
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
