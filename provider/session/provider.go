package session

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/repository"
	"github.com/google/uuid"
)

// Provider answers for a single token. A missing or unusable token is
// signed out; only storage failures are reported as errors.
type Provider struct {
	service  *Service
	token    string
	claims   *Claims
	tokenErr error
}

var _ guard.IdentityProvider = (*Provider)(nil)

func (p *Provider) IsAuthenticated(ctx context.Context) (bool, error) {
	if p.token == "" || p.claims == nil {
		if p.tokenErr != nil {
			p.service.logger.Debug("session token rejected: %v", p.tokenErr)
		}
		return false, nil
	}

	sid, err := uuid.Parse(p.claims.SID)
	if err != nil {
		return false, nil
	}

	record, err := p.service.repo.Sessions().GetByID(ctx, sid)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if record.UserID.String() != p.claims.ID() {
		return false, nil
	}

	return record.Active(p.service.now()), nil
}

func (p *Provider) OnAuthStateChanged(handler guard.AuthStateHandler) guard.Unsubscribe {
	if p.claims == nil || handler == nil {
		return func() {}
	}
	return p.service.hub.Subscribe(p.claims.SID, handler)
}

// Claims returns the validated token claims, nil when the token was unusable
func (p *Provider) Claims() *Claims {
	return p.claims
}
