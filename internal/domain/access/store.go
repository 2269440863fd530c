package access

import "context"

// PolicyStore persists and retrieves policies. Implementations live in the
// outbound adapters (memory for dev/tests, sqlite for persistence).
type PolicyStore interface {
	// GetAllPolicies returns every stored policy, enabled or not.
	GetAllPolicies(ctx context.Context) ([]Policy, error)
	// GetPolicy returns a policy by ID.
	GetPolicy(ctx context.Context, id string) (*Policy, error)
	// SavePolicy creates or updates a policy.
	SavePolicy(ctx context.Context, p *Policy) error
	// DeletePolicy removes a policy by ID.
	DeletePolicy(ctx context.Context, id string) error
}
