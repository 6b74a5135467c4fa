package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/identity"
)

type LogoutSession interface {
	Domain() identity.Domain
	Authenticated() bool
	Logout(ctx context.Context) error
}

// LogoutResult reports which domains were authenticated before logout.
type LogoutResult struct {
	Domains []identity.Domain
	Err     error
}

// RunLogout logs out every session. Sessions are cleared even when they were
// already Anonymous so stray persisted keys are removed.
func RunLogout(ctx context.Context, sessions ...LogoutSession) LogoutResult {
	var res LogoutResult
	var errs []error
	for _, s := range sessions {
		if s == nil {
			continue
		}
		was := s.Authenticated()
		if err := s.Logout(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		if was {
			res.Domains = append(res.Domains, s.Domain())
		}
	}
	res.Err = errors.Join(errs...)
	return res
}
