// Package sqlite provides a persistent access.PolicyStore backed by a
// local SQLite database (modernc.org/sqlite, no cgo). Rule expressions are
// stored in their JSON wire form and decoded through the schema codec.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Record-Gate/Recordgate/internal/adapter/outbound/schema"
	"github.com/Record-Gate/Recordgate/internal/domain/access"
)

// ErrPolicyNotFound is returned when a policy ID does not exist.
var ErrPolicyNotFound = errors.New("policy not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS policies (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	action     TEXT NOT NULL,
	field      TEXT NOT NULL DEFAULT '',
	rule       TEXT NOT NULL,
	enabled    INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_policies_model_action ON policies(model, action);
`

// PolicyStore implements access.PolicyStore on SQLite.
type PolicyStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies the
// schema. The caller owns Close.
func Open(path string) (*PolicyStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PolicyStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PolicyStore) Close() error {
	return s.db.Close()
}

// GetAllPolicies returns every stored policy.
func (s *PolicyStore) GetAllPolicies(ctx context.Context) ([]access.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, action, field, rule, enabled, created_at, updated_at FROM policies ORDER BY model, action, field`)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var out []access.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPolicy returns a policy by ID, or ErrPolicyNotFound.
func (s *PolicyStore) GetPolicy(ctx context.Context, id string) (*access.Policy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, model, action, field, rule, enabled, created_at, updated_at FROM policies WHERE id = ?`, id)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePolicy inserts or replaces a policy. A missing ID is assigned a UUID.
func (s *PolicyStore) SavePolicy(ctx context.Context, p *access.Policy) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ruleJSON, err := schema.EncodeExpression(p.Rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO policies (id, model, action, field, rule, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			action = excluded.action,
			field = excluded.field,
			rule = excluded.rule,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		p.ID, p.Model, string(p.Action), p.Field, string(ruleJSON),
		boolToInt(p.Enabled), p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// DeletePolicy removes a policy by ID, or returns ErrPolicyNotFound.
func (s *PolicyStore) DeletePolicy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row scanner) (access.Policy, error) {
	var (
		p                    access.Policy
		action               string
		ruleJSON             string
		enabled              int
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Model, &action, &p.Field, &ruleJSON, &enabled, &createdAt, &updatedAt); err != nil {
		return access.Policy{}, err
	}
	p.Action = access.Action(action)
	p.Enabled = enabled != 0

	rule, err := schema.DecodeExpression([]byte(ruleJSON))
	if err != nil {
		return access.Policy{}, fmt.Errorf("policy %s has corrupt rule: %w", p.ID, err)
	}
	p.Rule = rule

	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface verification.
var _ access.PolicyStore = (*PolicyStore)(nil)
