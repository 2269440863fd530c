// Package memory provides in-memory adapter implementations for
// development and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Record-Gate/Recordgate/internal/domain/access"
)

// ErrPolicyNotFound is returned when a policy ID does not exist.
var ErrPolicyNotFound = errors.New("policy not found")

// MemoryPolicyStore implements access.PolicyStore with an in-memory map.
// Thread-safe for concurrent access. For development/testing only.
type MemoryPolicyStore struct {
	policies map[string]access.Policy // ID -> Policy
	mu       sync.RWMutex
}

// NewPolicyStore creates a new in-memory policy store.
func NewPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{
		policies: make(map[string]access.Policy),
	}
}

// GetAllPolicies returns all stored policies.
func (s *MemoryPolicyStore) GetAllPolicies(ctx context.Context) ([]access.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]access.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		result = append(result, p)
	}
	return result, nil
}

// GetPolicy returns a policy by ID.
// Returns ErrPolicyNotFound if the policy doesn't exist.
func (s *MemoryPolicyStore) GetPolicy(ctx context.Context, id string) (*access.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return &p, nil
}

// SavePolicy creates or updates a policy. A missing ID is assigned a UUID.
// Rule expressions are immutable trees, so storing the struct value is a
// sufficient copy.
func (s *MemoryPolicyStore) SavePolicy(ctx context.Context, p *access.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.policies[p.ID] = *p
	return nil
}

// DeletePolicy removes a policy by ID.
// Returns ErrPolicyNotFound if the policy doesn't exist.
func (s *MemoryPolicyStore) DeletePolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[id]; !ok {
		return ErrPolicyNotFound
	}
	delete(s.policies, id)
	return nil
}

// Compile-time interface verification.
var _ access.PolicyStore = (*MemoryPolicyStore)(nil)
