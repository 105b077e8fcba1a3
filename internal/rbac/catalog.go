package rbac

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Catalog is the registry of capabilities declared by modules at startup.
type Catalog struct {
	mu    sync.RWMutex
	perms map[string]Permission
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{perms: make(map[string]Permission)}
}

// Register declares capabilities owned by module.
func (c *Catalog) Register(module string, names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		if err := ValidateCapability(name); err != nil {
			return err
		}
		name = Canonical(name)
		if existing, ok := c.perms[name]; ok && existing.Module != module {
			return fmt.Errorf("%w: capability %q already declared by %s", shared.ErrConflict, name, existing.Module)
		}
		c.perms[name] = Permission{Name: name, Module: module}
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(module string, names ...string) {
	if err := c.Register(module, names...); err != nil {
		panic(err)
	}
}

// Known reports whether capability is declared or is an ancestor of a
// declared capability, so broad grants such as "phd" are accepted.
func (c *Catalog) Known(capability string) bool {
	if ValidateCapability(capability) != nil {
		return false
	}
	capability = Canonical(capability)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.perms[capability]; ok {
		return true
	}
	for name := range c.perms {
		if IsAncestorOrSelf(capability, name) {
			return true
		}
	}
	return false
}

// Validate returns a validation error naming every unknown capability.
func (c *Catalog) Validate(capabilities []string) error {
	var unknown []string
	for _, name := range capabilities {
		if !c.Known(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown capabilities: %s", shared.ErrValidation, strings.Join(unknown, ", "))
	}
	return nil
}

// ListPermissions returns all declared capabilities ordered by name.
func (c *Catalog) ListPermissions() []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	perms := make([]Permission, 0, len(c.perms))
	for _, p := range c.perms {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// DefaultCatalog registers the capabilities declared in internal/shared.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.MustRegister("core", shared.CoreScopes()...)
	c.MustRegister("academic", shared.AcademicScopes()...)
	c.MustRegister("operations", shared.OperationsScopes()...)
	c.MustRegister("documents", shared.DocumentScopes()...)
	return c
}
