// Package api is a small client for the storefront REST API.
//
// It covers the endpoints the client state depends on: credential login,
// the bearer-token profile lookup, and product CRUD. Every method takes a
// context; non-2xx responses are returned as *Error, and 401s additionally
// match ErrUnauthorized with errors.Is.
package api
