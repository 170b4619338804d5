// Package session holds the auth state of the storefront client.
//
// A non-empty token means signed in, whether or not the profile has been
// fetched yet. Every transition that can change the identity key (login,
// external credential login, profile arrival, logout) ends by resyncing the
// containers under the newly resolved key.
//
// Profile requests are tagged with a sequence number. Login and Logout
// advance it as well, so a response that arrives after the session moved on
// is dropped instead of resurrecting a signed-out user.
package session
