// Package service contains application services.
package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

// policySnapshot is the immutable policy index stored in atomic.Value.
// Row-scope policies are keyed by (model, action); field-scope read
// policies are grouped per model. gen increases on every Reload and is
// folded into decision cache keys, so a decision computed against an old
// snapshot can never be served after a reload, even if its Put races with
// the reload's cache clear.
type policySnapshot struct {
	gen    uint64
	rows   map[access.Key]access.Policy
	fields map[string][]access.Policy
}

// AccessService answers row-level, field-level, and write authorization
// questions by evaluating registered policy rules in strict field-access
// mode. Deny-by-default is a hard invariant: no matching policy, a false
// result, and an evaluation error all collapse to deny.
//
// Policies are indexed at load time; Reload publishes a fresh snapshot via
// atomic.Value so in-flight decisions never observe a torn policy set.
type AccessService struct {
	store     access.PolicyStore
	evaluator *eval.Evaluator
	snapshot  atomic.Value // stores *policySnapshot
	mu        sync.Mutex   // only for Reload() writes
	gen       uint64       // guarded by mu
	cache     *decisionCache
	logger    *slog.Logger
}

// AccessServiceOption configures AccessService.
type AccessServiceOption func(*AccessService)

// WithCacheSize sets the maximum number of cached decisions.
func WithCacheSize(size int) AccessServiceOption {
	return func(s *AccessService) {
		s.cache = newDecisionCache(size)
	}
}

// NewAccessService builds an AccessService and loads the initial policy
// snapshot from the store. The ctx parameter covers the initial load only.
func NewAccessService(ctx context.Context, store access.PolicyStore, evaluator *eval.Evaluator, logger *slog.Logger, opts ...AccessServiceOption) (*AccessService, error) {
	s := &AccessService{
		store:     store,
		evaluator: evaluator,
		cache:     newDecisionCache(1000),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reloads all policies from the store and publishes a new snapshot.
// Safe to call concurrently with decision methods; readers are lock-free.
func (s *AccessService) Reload(ctx context.Context) error {
	policies, err := s.store.GetAllPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	snap := &policySnapshot{
		rows:   make(map[access.Key]access.Policy),
		fields: make(map[string][]access.Policy),
	}
	for _, p := range policies {
		if !p.Enabled {
			continue
		}
		if p.Field == "" {
			snap.rows[p.Key()] = p
			continue
		}
		snap.fields[p.Model] = append(snap.fields[p.Model], p)
	}
	// Deterministic field ordering for stable filtered output and logs.
	for model := range snap.fields {
		fps := snap.fields[model]
		sort.Slice(fps, func(i, j int) bool { return fps[i].Field < fps[j].Field })
	}

	s.mu.Lock()
	s.gen++
	snap.gen = s.gen
	s.snapshot.Store(snap)
	s.mu.Unlock()

	// The generation bump already retires every cached decision; clearing
	// just releases the memory.
	s.cache.Clear()

	s.logger.Info("access policies loaded",
		"policies", len(policies),
		"row_rules", len(snap.rows),
		"field_rule_models", len(snap.fields),
	)
	return nil
}

func (s *AccessService) loadSnapshot() *policySnapshot {
	return s.snapshot.Load().(*policySnapshot)
}

// evalRule evaluates a policy rule in strict field-access mode and collapses
// every non-true outcome to deny. Errors are logged structurally without
// record content; no deny reason propagates to callers.
func (s *AccessService) evalRule(p access.Policy, evalCtx *expr.Context) bool {
	v, err := s.evaluator.EvaluateStrict(p.Rule, evalCtx)
	if err != nil {
		kind := "error"
		if ee, ok := err.(expr.EvalError); ok {
			kind = ee.Kind()
		}
		s.logger.Warn("policy rule evaluation failed, denying",
			"policy_id", p.ID,
			"model", p.Model,
			"action", string(p.Action),
			"field", p.Field,
			"error_kind", kind,
		)
		return false
	}
	b, ok := v.(bool)
	if !ok {
		s.logger.Warn("policy rule returned non-boolean, denying",
			"policy_id", p.ID,
			"model", p.Model,
			"action", string(p.Action),
			"field", p.Field,
		)
		return false
	}
	return b
}

// CanReadRow reports whether the identity may read the given record of the
// model. With no registered Row/Read policy the answer is false for every
// record and every identity. Callers must apply this before materializing a
// result page so a denied row is indistinguishable from a missing one.
func (s *AccessService) CanReadRow(model string, record map[string]any, user *expr.Identity) bool {
	snap := s.loadSnapshot()
	key := access.Key{Model: model, Action: access.ActionRead}
	if cacheKey, ok := decisionCacheKey(snap.gen, key, user, record, nil); ok {
		if allowed, hit := s.cache.Get(cacheKey); hit {
			return allowed
		}
		allowed := s.decideRow(snap, key, record, user)
		s.cache.Put(cacheKey, allowed)
		return allowed
	}
	return s.decideRow(snap, key, record, user)
}

func (s *AccessService) decideRow(snap *policySnapshot, key access.Key, record map[string]any, user *expr.Identity) bool {
	p, ok := snap.rows[key]
	if !ok {
		return false
	}
	return s.evalRule(p, &expr.Context{Record: record, User: user})
}

// FilterFields returns a copy of the record containing only the fields the
// identity may read. A denied or unpolicied field is absent from the output
// entirely, never replaced with null, so "hidden" cannot be told apart from
// "legitimately empty".
func (s *AccessService) FilterFields(model string, record map[string]any, user *expr.Identity) map[string]any {
	out := make(map[string]any)
	evalCtx := &expr.Context{Record: record, User: user}
	for _, p := range s.loadSnapshot().fields[model] {
		if p.Action != access.ActionRead {
			continue
		}
		v, present := record[p.Field]
		if !present {
			continue
		}
		if s.evalRule(p, evalCtx) {
			out[p.Field] = v
		}
	}
	return out
}

// CanWrite reports whether the identity may perform the given mutation.
// For updates the rule sees the pre-mutation record as the context record
// and the proposed data under related key "incoming"; creates expose the
// incoming data as the record itself.
func (s *AccessService) CanWrite(model string, action access.Action, existing, incoming map[string]any, user *expr.Identity) bool {
	if action == access.ActionRead || !access.ValidAction(action) {
		return false
	}
	snap := s.loadSnapshot()
	key := access.Key{Model: model, Action: action}
	if cacheKey, ok := decisionCacheKey(snap.gen, key, user, existing, incoming); ok {
		if allowed, hit := s.cache.Get(cacheKey); hit {
			return allowed
		}
		allowed := s.decideWrite(snap, key, existing, incoming, user)
		s.cache.Put(cacheKey, allowed)
		return allowed
	}
	return s.decideWrite(snap, key, existing, incoming, user)
}

func (s *AccessService) decideWrite(snap *policySnapshot, key access.Key, existing, incoming map[string]any, user *expr.Identity) bool {
	p, ok := snap.rows[key]
	if !ok {
		return false
	}
	return s.evalRule(p, writeContext(key.Action, existing, incoming, user))
}

// AuthorizeWrite is CanWrite with an error result: a deny surfaces as
// *access.AuthorizationError carrying only a generic message, which the
// mutation layer must map to a hard rejection with no side effects.
func (s *AccessService) AuthorizeWrite(model string, action access.Action, existing, incoming map[string]any, user *expr.Identity) error {
	if s.CanWrite(model, action, existing, incoming, user) {
		return nil
	}
	return &access.AuthorizationError{Model: model, Action: action}
}

// writeContext builds the evaluation context for a mutation rule.
func writeContext(action access.Action, existing, incoming map[string]any, user *expr.Identity) *expr.Context {
	record := existing
	if action == access.ActionCreate {
		record = incoming
	}
	var related map[string]any
	if incoming != nil {
		related = map[string]any{"incoming": incoming}
	}
	return &expr.Context{Record: record, User: user, Related: related}
}

// decisionCacheKey hashes the snapshot generation plus the full decision
// input. Records that cannot be serialized deterministically (non-JSON
// values) bypass the cache.
func decisionCacheKey(gen uint64, key access.Key, user *expr.Identity, record, incoming map[string]any) (uint64, bool) {
	h := xxhash.New()
	var genBuf [8]byte
	binary.BigEndian.PutUint64(genBuf[:], gen)
	_, _ = h.Write(genBuf[:])
	_, _ = h.WriteString(key.Model)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(string(key.Action))
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(key.Field)
	_, _ = h.Write([]byte{0})

	if user != nil {
		_, _ = h.WriteString(user.ID)
		_, _ = h.Write([]byte{0})
		roles := make([]string, len(user.Roles))
		copy(roles, user.Roles)
		sort.Strings(roles)
		_, _ = h.WriteString(strings.Join(roles, ","))
		if len(user.Attributes) > 0 {
			attrs, err := json.Marshal(user.Attributes)
			if err != nil {
				return 0, false
			}
			_, _ = h.Write(attrs)
		}
	}
	_, _ = h.Write([]byte{0})

	for _, m := range []map[string]any{record, incoming} {
		if len(m) > 0 {
			// encoding/json sorts map keys, so the digest is stable.
			b, err := json.Marshal(m)
			if err != nil {
				return 0, false
			}
			_, _ = h.Write(b)
		}
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64(), true
}
