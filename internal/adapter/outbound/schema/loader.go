package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Record-Gate/Recordgate/internal/domain/access"
)

// bundleFile is the on-disk policy bundle shape, YAML or JSON.
type bundleFile struct {
	Policies []policyEntry `yaml:"policies" json:"policies"`
}

type policyEntry struct {
	ID      string `yaml:"id" json:"id"`
	Model   string `yaml:"model" json:"model"`
	Action  string `yaml:"action" json:"action"`
	Field   string `yaml:"field" json:"field"`
	Enabled *bool  `yaml:"enabled" json:"enabled"`
	Rule    any    `yaml:"rule" json:"rule"`
}

// LoadBundle reads a policy bundle file, decodes every rule expression, and
// validates each against the registry. The extension picks the format:
// .json is JSON, everything else is YAML. Unnamed policies get UUIDs.
func LoadBundle(path string, validator *Validator) ([]access.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy bundle: %w", err)
	}

	var bundle bundleFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("invalid JSON policy bundle %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("invalid YAML policy bundle %s: %w", path, err)
		}
	}

	policies := make([]access.Policy, 0, len(bundle.Policies))
	for i, entry := range bundle.Policies {
		p, err := decodePolicy(entry, validator)
		if err != nil {
			return nil, fmt.Errorf("policy %d: %w", i, err)
		}
		policies = append(policies, p)
	}
	return policies, nil
}

func decodePolicy(entry policyEntry, validator *Validator) (access.Policy, error) {
	if entry.Model == "" {
		return access.Policy{}, fmt.Errorf("missing model")
	}
	action := access.Action(entry.Action)
	if !access.ValidAction(action) {
		return access.Policy{}, fmt.Errorf("invalid action %q", entry.Action)
	}
	if entry.Field != "" && action != access.ActionRead {
		return access.Policy{}, fmt.Errorf("field-scoped policies are only valid for read, got %q", entry.Action)
	}
	if entry.Rule == nil {
		return access.Policy{}, fmt.Errorf("missing rule")
	}

	rule, err := DecodeNode(normalizeYAML(entry.Rule))
	if err != nil {
		return access.Policy{}, fmt.Errorf("rule: %w", err)
	}
	if err := validator.ValidateExpression(rule); err != nil {
		return access.Policy{}, fmt.Errorf("rule: %w", err)
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	enabled := true
	if entry.Enabled != nil {
		enabled = *entry.Enabled
	}
	return access.Policy{
		ID:      id,
		Model:   entry.Model,
		Action:  action,
		Field:   entry.Field,
		Rule:    rule,
		Enabled: enabled,
	}, nil
}

// normalizeYAML converts yaml.v3's map[any]any maps (produced for non-string
// or mixed keys) into map[string]any so DecodeNode sees one map shape.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

// SeedStore writes every bundle policy into the store. Used at startup to
// populate the configured backend from the bundle file.
func SeedStore(ctx context.Context, store access.PolicyStore, policies []access.Policy) error {
	for i := range policies {
		p := policies[i]
		if err := store.SavePolicy(ctx, &p); err != nil {
			return fmt.Errorf("failed to save policy %s: %w", p.ID, err)
		}
	}
	return nil
}
