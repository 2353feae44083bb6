package guard

import "context"

// ProviderFuncs adapts a pair of functions to IdentityProvider. A nil Probe
// reports unauthenticated, a nil Subscribe never notifies.
type ProviderFuncs struct {
	Probe     func(ctx context.Context) (bool, error)
	Subscribe func(handler AuthStateHandler) Unsubscribe
}

// IsAuthenticated implements IdentityProvider.
func (p ProviderFuncs) IsAuthenticated(ctx context.Context) (bool, error) {
	if p.Probe == nil {
		return false, nil
	}
	return p.Probe(ctx)
}

// OnAuthStateChanged implements IdentityProvider.
func (p ProviderFuncs) OnAuthStateChanged(handler AuthStateHandler) Unsubscribe {
	if p.Subscribe == nil {
		return func() {}
	}
	return p.Subscribe(handler)
}

// FailingProvider returns a provider whose probe always fails with err.
// It lets callers that cannot build a real provider reuse the ProbeFailure path.
func FailingProvider(err error) IdentityProvider {
	return ProviderFuncs{
		Probe: func(context.Context) (bool, error) {
			return false, err
		},
	}
}

// AnonymousProvider returns a provider that always reports no identity
func AnonymousProvider() IdentityProvider {
	return ProviderFuncs{}
}
