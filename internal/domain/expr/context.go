package expr

// Identity is the authenticated principal an expression is evaluated for.
// A nil Identity means the caller is anonymous; permission operations treat
// "no identity" as "no privilege" rather than an error.
type Identity struct {
	// ID is the principal's unique identifier. Ownership checks compare
	// record fields against it with scalar normalization, so numeric
	// record IDs match their decimal string form.
	ID string
	// Roles are the role names assigned to the principal.
	Roles []string
	// Attributes carries additional principal data (e.g. a "permissions"
	// list consulted by hasPermission).
	Attributes map[string]any
}

// HasRole reports whether the identity holds the given role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Context is the immutable bundle an expression is evaluated against: the
// current record, the acting identity, and optionally pre-loaded related
// records. The engine never fetches data lazily and never mutates a Context;
// callers construct a fresh one per evaluation call.
type Context struct {
	// Record maps field names to values for the row under evaluation.
	Record map[string]any
	// User is the acting identity, or nil for anonymous callers.
	User *Identity
	// Related maps relation names to pre-loaded records (map[string]any)
	// or record lists ([]any). FieldAccess paths fall through to Related
	// when the first segment is not a Record field.
	Related map[string]any
}
