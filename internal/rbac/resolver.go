package rbac

import "sort"

// Resolve unions the allowed and disallowed sets of every role in canonical
// form. The result does not depend on role order.
func Resolve(roles ...Role) Access {
	allowed := make(map[string]struct{})
	disallowed := make(map[string]struct{})
	for _, role := range roles {
		for _, c := range role.Allowed {
			allowed[Canonical(c)] = struct{}{}
		}
		for _, c := range role.Disallowed {
			disallowed[Canonical(c)] = struct{}{}
		}
	}
	return Access{Allowed: sortedKeys(allowed), Disallowed: sortedKeys(disallowed)}
}

// ResolveUser resolves a user's roles; deactivated users get the empty access.
func ResolveUser(active bool, roles []Role) Access {
	if !active {
		return Resolve()
	}
	return Resolve(roles...)
}

// Decide grants required when the most specific matching allow entry is
// strictly more specific than the most specific matching deny entry.
// Ties deny.
func Decide(access Access, required string) bool {
	if required == "" {
		return false
	}
	sa, ok := mostSpecificMatch(access.Allowed, required)
	if !ok {
		return false
	}
	sd, ok := mostSpecificMatch(access.Disallowed, required)
	if !ok {
		return true
	}
	return sa > sd
}

// DecideAll grants only if every capability is granted. No capabilities
// grants.
func DecideAll(access Access, required ...string) bool {
	for _, c := range required {
		if !Decide(access, c) {
			return false
		}
	}
	return true
}

// DecideAny grants if at least one capability is granted. No capabilities
// grants.
func DecideAny(access Access, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, c := range required {
		if Decide(access, c) {
			return true
		}
	}
	return false
}

func mostSpecificMatch(set []string, required string) (int, bool) {
	best := -1
	for _, c := range set {
		if !IsAncestorOrSelf(c, required) {
			continue
		}
		if s := Specificity(c); s > best {
			best = s
		}
	}
	return best, best >= 0
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
