package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Record-Gate/Recordgate/internal/domain/access"
	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

func openTestStore(t *testing.T) *PolicyStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "policies.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLitePolicyStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	p := &access.Policy{
		Model:   "employee",
		Action:  access.ActionRead,
		Field:   "salary",
		Rule:    expr.Perm("hasRole", expr.Lit("hr"), expr.Lit("admin")),
		Enabled: true,
	}
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("SavePolicy should assign a UUID to a missing ID")
	}

	got, err := store.GetPolicy(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if got.Model != "employee" || got.Field != "salary" || !got.Enabled {
		t.Errorf("GetPolicy() = %+v", got)
	}

	// The rule survives the JSON round trip through the rule column.
	perm, ok := got.Rule.(expr.PermissionCheck)
	if !ok {
		t.Fatalf("rule is %T, want PermissionCheck", got.Rule)
	}
	if perm.Check != "hasRole" || len(perm.Args) != 2 {
		t.Errorf("rule = %+v", perm)
	}

	// Upsert replaces the row.
	p.Enabled = false
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy(update) error = %v", err)
	}
	got, _ = store.GetPolicy(ctx, p.ID)
	if got.Enabled {
		t.Error("update should persist")
	}

	all, err := store.GetAllPolicies(ctx)
	if err != nil {
		t.Fatalf("GetAllPolicies() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(all) = %d, want 1", len(all))
	}

	if err := store.DeletePolicy(ctx, p.ID); err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if _, err := store.GetPolicy(ctx, p.ID); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("GetPolicy(deleted) error = %v, want ErrPolicyNotFound", err)
	}
}

func TestSQLitePolicyStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, err := store.GetPolicy(ctx, "nope"); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("GetPolicy() error = %v, want ErrPolicyNotFound", err)
	}
	if err := store.DeletePolicy(ctx, "nope"); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("DeletePolicy() error = %v, want ErrPolicyNotFound", err)
	}
}

func TestSQLitePolicyStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "policies.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p := &access.Policy{Model: "post", Action: access.ActionWrite, Rule: expr.Lit(true), Enabled: true}
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Policies persist across process restarts.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()

	got, err := store.GetPolicy(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPolicy(after reopen) error = %v", err)
	}
	if got.Model != "post" || got.Action != access.ActionWrite {
		t.Errorf("GetPolicy() = %+v", got)
	}
}
