// Package catalog caches the product list from the storefront API.
//
// Fetch status and the last error are plain fields of State for the CLI to
// render; errors are also returned to the caller. Product mutations need a
// session token and keep the cached list in step with the server's reply.
package catalog
