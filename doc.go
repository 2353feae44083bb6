// Package guard provides route guards that gate navigation on an identity
// state resolved asynchronously from an external identity provider.
//
// Auth state:
//   - AuthState is tri-state: Unknown while resolution is pending, then
//     Authenticated or Unauthenticated. Guards never render guarded content
//     while Unknown; Decision reports OutcomePending instead.
//
// Resolution:
//   - Activate issues one IsAuthenticated probe and subscribes to
//     OnAuthStateChanged. Both write the same state cell and the last write
//     wins. A failed probe is a ProbeFailure: it is logged, recorded on the
//     EventSink and resolves to Unauthenticated (fail-closed).
//   - Deactivate releases the subscription. A probe still in flight is not
//     cancelled, its result is discarded.
//
// Policies:
//   - RequireAuth renders for Authenticated and redirects Unauthenticated
//     visitors to the anonymous entry point (/login by default).
//   - RequireAnon renders for Unauthenticated and redirects Authenticated
//     visitors to the landing target (/ by default).
//
// The middleware/guardware package binds a guard to each fiber request and
// the routes package composes guards into the application path table.
package guard
