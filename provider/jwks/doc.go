// Package jwks adapts a third party identity service that issues signed JWTs
// to guard.IdentityProvider.
//
// Keys come from one or more remote JWK Sets, refreshed in the background,
// or from keys given in configuration. A token is authenticated while it
// verifies; the provider pushes a sign out when the token expires so live
// guards do not outlast it.
package jwks
