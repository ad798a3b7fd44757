package costcategory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Store abstracts category persistence for the resolver.
type Store interface {
	FindByName(ctx context.Context, name string) (Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	InsertIfAbsent(ctx context.Context, c Category) (Category, bool, error)
	List(ctx context.Context, includeInactive bool) ([]Category, error)
	Deactivate(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, id int64) (Category, error)
}

// Resolver maps business meaning to cost category rows, creating them on
// first use.
type Resolver struct {
	store Store

	mu    sync.RWMutex
	known map[string]Category
}

// NewResolver constructs Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, known: make(map[string]Category)}
}

// NormalizeName collapses whitespace and title-cases a category name so
// "employee  salaries" and "Employee Salaries" resolve to one row.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return cases.Title(language.English).String(strings.ToLower(name))
}

// FindOrCreate returns the category called name, creating it with type t when
// missing. An empty name resolves to the canonical name for t. A deactivated
// canonical category is reactivated; any other inactive category yields
// ErrCategoryInactive.
func (r *Resolver) FindOrCreate(ctx context.Context, t ExpenseType, name, description string) (Category, error) {
	if !t.Valid() {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	if strings.TrimSpace(name) == "" {
		name = CanonicalName(t)
	}
	name = NormalizeName(name)

	if c, ok := r.cached(name); ok {
		return checkType(c, t)
	}

	c, err := r.store.FindByName(ctx, name)
	switch {
	case err == nil:
		return r.usable(ctx, c, t)
	case !errors.Is(err, ErrCategoryNotFound):
		return Category{}, fmt.Errorf("costcategory: find %q: %w", name, err)
	}

	created, inserted, err := r.store.InsertIfAbsent(ctx, Category{Name: name, Type: t, Description: description, IsActive: true})
	if err != nil {
		return Category{}, fmt.Errorf("costcategory: create %q: %w", name, err)
	}
	if inserted {
		r.remember(created)
		return created, nil
	}

	// Lost the insert race; the winner's row is authoritative.
	c, err = r.store.FindByName(ctx, name)
	if err != nil {
		return Category{}, fmt.Errorf("costcategory: reload %q: %w", name, err)
	}
	return r.usable(ctx, c, t)
}

// usable checks a stored row before handing it out and caches it.
func (r *Resolver) usable(ctx context.Context, c Category, t ExpenseType) (Category, error) {
	c, err := checkType(c, t)
	if err != nil {
		return Category{}, err
	}
	if !c.IsActive {
		if c.Name != NormalizeName(CanonicalName(t)) {
			return Category{}, fmt.Errorf("%w: %q", ErrCategoryInactive, c.Name)
		}
		active, err := r.store.Reactivate(ctx, c.ID)
		if err != nil {
			return Category{}, fmt.Errorf("costcategory: reactivate %q: %w", c.Name, err)
		}
		c = active
	}
	r.remember(c)
	return c, nil
}

// Canonical resolves the registry category for t.
func (r *Resolver) Canonical(ctx context.Context, t ExpenseType) (Category, error) {
	return r.FindOrCreate(ctx, t, "", "")
}

// Get loads a category by id.
func (r *Resolver) Get(ctx context.Context, id int64) (Category, error) {
	return r.store.Get(ctx, id)
}

// List returns the categories, optionally including inactive ones.
func (r *Resolver) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	return r.store.List(ctx, includeInactive)
}

// Deactivate soft-deletes a category.
func (r *Resolver) Deactivate(ctx context.Context, id int64) error {
	if err := r.store.Deactivate(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	for name, c := range r.known {
		if c.ID == id {
			delete(r.known, name)
		}
	}
	r.mu.Unlock()
	return nil
}

func (r *Resolver) cached(name string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.known[name]
	return c, ok
}

func (r *Resolver) remember(c Category) {
	r.mu.Lock()
	r.known[c.Name] = c
	r.mu.Unlock()
}

func checkType(c Category, t ExpenseType) (Category, error) {
	if c.Type != t {
		return Category{}, fmt.Errorf("%w: %q is %s", ErrTypeMismatch, c.Name, c.Type)
	}
	return c, nil
}
