package eval

import "github.com/Record-Gate/Recordgate/internal/domain/expr"

// permissionOps returns the identity-scoped category dispatchable from
// PermissionCheck nodes. When the context carries no identity, every check
// except isAnonymous answers false: "no identity" means "no privilege",
// never an error.
func permissionOps() []entry {
	return []entry{
		{name: "hasRole", minArgs: 1, maxArgs: -1, pure: true, perm: true, fn: opHasAnyRole("hasRole")},
		{name: "hasAnyRole", minArgs: 1, maxArgs: -1, pure: true, perm: true, fn: opHasAnyRole("hasAnyRole")},
		{name: "hasAllRoles", minArgs: 1, maxArgs: -1, pure: true, perm: true, fn: opHasAllRoles},
		{name: "hasPermission", minArgs: 1, maxArgs: 1, pure: true, perm: true, fn: opHasPermission},
		{name: "isOwner", minArgs: 1, maxArgs: 1, pure: true, perm: true, fn: opIsOwner},
		{name: "isAuthenticated", minArgs: 0, maxArgs: 0, pure: true, perm: true, fn: opIsAuthenticated},
		{name: "isAnonymous", minArgs: 0, maxArgs: 0, pure: true, perm: true, fn: opIsAnonymous},
	}
}

// opHasAnyRole matches when the identity holds any of the named roles.
// hasRole is variadic with the same any-of semantics, so field rules like
// hasRole("hr", "admin") read naturally.
func opHasAnyRole(op string) opFunc {
	return func(_ *Evaluator, ctx *expr.Context, args []any) (any, error) {
		if ctx.User == nil {
			return false, nil
		}
		for i := range args {
			role, err := stringArg(op, args, i)
			if err != nil {
				return nil, err
			}
			if ctx.User.HasRole(role) {
				return true, nil
			}
		}
		return false, nil
	}
}

func opHasAllRoles(_ *Evaluator, ctx *expr.Context, args []any) (any, error) {
	if ctx.User == nil {
		return false, nil
	}
	for i := range args {
		role, err := stringArg("hasAllRoles", args, i)
		if err != nil {
			return nil, err
		}
		if !ctx.User.HasRole(role) {
			return false, nil
		}
	}
	return true, nil
}

// opHasPermission consults the identity's "permissions" attribute, which
// may be []any or []string depending on how the identity was decoded.
func opHasPermission(_ *Evaluator, ctx *expr.Context, args []any) (any, error) {
	perm, err := stringArg("hasPermission", args, 0)
	if err != nil {
		return nil, err
	}
	if ctx.User == nil {
		return false, nil
	}
	switch perms := ctx.User.Attributes["permissions"].(type) {
	case []any:
		for _, p := range perms {
			if s, ok := p.(string); ok && s == perm {
				return true, nil
			}
		}
	case []string:
		for _, p := range perms {
			if p == perm {
				return true, nil
			}
		}
	}
	return false, nil
}

// opIsOwner compares the named record field against the identity ID with
// scalar normalization, so a numeric authorId matches its decimal string
// form.
func opIsOwner(_ *Evaluator, ctx *expr.Context, args []any) (any, error) {
	fieldName, err := stringArg("isOwner", args, 0)
	if err != nil {
		return nil, err
	}
	if ctx.User == nil || ctx.Record == nil {
		return false, nil
	}
	v, ok := ctx.Record[fieldName]
	if !ok || v == nil {
		return false, nil
	}
	s, ok := scalarString(v)
	if !ok {
		return false, nil
	}
	return s == ctx.User.ID, nil
}

func opIsAuthenticated(_ *Evaluator, ctx *expr.Context, _ []any) (any, error) {
	return ctx.User != nil, nil
}

// opIsAnonymous is the one check that answers true for a missing identity;
// it exists precisely to assert the absence of one.
func opIsAnonymous(_ *Evaluator, ctx *expr.Context, _ []any) (any, error) {
	return ctx.User == nil, nil
}
