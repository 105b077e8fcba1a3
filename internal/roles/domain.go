package roles

import (
	"context"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
)

// RoleInput carries the editable fields of a role.
type RoleInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Allowed     []string `json:"allowed" validate:"dive,required"`
	Disallowed  []string `json:"disallowed" validate:"dive,required"`
}

// RoleListFilters controls role listing order.
type RoleListFilters struct {
	SortBy  string
	SortDir string
}

// HolderHook runs inside the mutating transaction with the ids of every user
// holding the role. Returning an error rolls the mutation back.
type HolderHook func(ctx context.Context, holderIDs []int64) error

func (in RoleInput) normalized() RoleInput {
	in.Name = strings.Join(strings.Fields(in.Name), " ")
	in.Description = strings.TrimSpace(in.Description)
	in.Allowed = canonical(in.Allowed)
	in.Disallowed = canonical(in.Disallowed)
	return in
}

func canonical(caps []string) []string {
	seen := make(map[string]struct{}, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		c = rbac.Canonical(strings.TrimSpace(c))
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
