// Package memory provides an in-memory store backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/store"
	"github.com/holocrononline/holocron/tenant"
)

type reactionKey struct {
	name  string
	owner tenant.ID
}

// Repository keeps likes and comments in maps. It enforces the same
// uniqueness rules as the database schema.
type Repository struct {
	sync.RWMutex
	reactions map[string]model.Reaction
	byOwner   map[reactionKey]string
	reviews   map[string]model.Review
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{
		reactions: map[string]model.Reaction{},
		byOwner:   map[reactionKey]string{},
		reviews:   map[string]model.Review{},
	}
}

// CountReactions returns the number of likes for name.
func (r *Repository) CountReactions(_ context.Context, name string) (int, error) {
	r.RLock()
	defer r.RUnlock()

	n := 0
	for _, rc := range r.reactions {
		if rc.Name == name {
			n++
		}
	}
	return n, nil
}

// FindReaction returns the like of name owned by owner.
func (r *Repository) FindReaction(_ context.Context, name string, owner tenant.ID) (*model.Reaction, error) {
	r.RLock()
	defer r.RUnlock()

	id, ok := r.byOwner[reactionKey{name, owner}]
	if !ok {
		return nil, store.ErrNotFound
	}
	rc := r.reactions[id]
	return &rc, nil
}

// ListReviews returns the comments for name, newest viewing first.
func (r *Repository) ListReviews(_ context.Context, name string) ([]model.Review, error) {
	r.RLock()
	defer r.RUnlock()

	out := make([]model.Review, 0)
	for _, rv := range r.reviews {
		if rv.Name == name {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateWatched.Equal(out[j].DateWatched) {
			return out[i].DateWatched.After(out[j].DateWatched)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountReviews returns the number of comments for name.
func (r *Repository) CountReviews(_ context.Context, name string) (int, error) {
	r.RLock()
	defer r.RUnlock()

	n := 0
	for _, rv := range r.reviews {
		if rv.Name == name {
			n++
		}
	}
	return n, nil
}

// HasReview reports whether owner commented on name.
func (r *Repository) HasReview(_ context.Context, name string, owner tenant.ID) (bool, error) {
	r.RLock()
	defer r.RUnlock()

	for _, rv := range r.reviews {
		if rv.Name == name && rv.TenantID == owner {
			return true, nil
		}
	}
	return false, nil
}

// Apply persists the change set. The whole set is checked before anything is
// written, so a failing change set leaves the repository untouched.
func (r *Repository) Apply(ctx context.Context, changes *store.Changes) error {
	r.Lock()
	defer r.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.check(changes); err != nil {
		return err
	}

	for _, rec := range changes.Removed() {
		switch v := rec.(type) {
		case *model.Reaction:
			delete(r.reactions, v.ID)
			delete(r.byOwner, reactionKey{v.Name, v.TenantID})
		case *model.Review:
			delete(r.reviews, v.ID)
		}
	}
	for _, rec := range changes.Added() {
		switch v := rec.(type) {
		case *model.Reaction:
			r.reactions[v.ID] = *v
			r.byOwner[reactionKey{v.Name, v.TenantID}] = v.ID
		case *model.Review:
			r.reviews[v.ID] = *v
		}
	}
	return nil
}

func (r *Repository) check(changes *store.Changes) error {
	removed := map[string]bool{}
	for _, rec := range changes.Removed() {
		switch v := rec.(type) {
		case *model.Reaction:
			if _, ok := r.reactions[v.ID]; !ok {
				return fmt.Errorf("delete like %s: %w", v.ID, store.ErrNotFound)
			}
			removed[v.ID] = true
		case *model.Review:
			if _, ok := r.reviews[v.ID]; !ok {
				return fmt.Errorf("delete comment %s: %w", v.ID, store.ErrNotFound)
			}
			removed[v.ID] = true
		default:
			return fmt.Errorf("unsupported record %T", rec)
		}
	}

	added := map[reactionKey]bool{}
	ids := map[string]bool{}
	for _, rec := range changes.Added() {
		switch v := rec.(type) {
		case *model.Reaction:
			key := reactionKey{v.Name, v.TenantID}
			if id, ok := r.byOwner[key]; (ok && !removed[id]) || added[key] {
				return fmt.Errorf("insert like %q: %w", v.Name, store.ErrConflict)
			}
			if _, ok := r.reactions[v.ID]; ok || ids[v.ID] {
				return fmt.Errorf("insert like %s: %w", v.ID, store.ErrConflict)
			}
			added[key] = true
			ids[v.ID] = true
		case *model.Review:
			if _, ok := r.reviews[v.ID]; ok || ids[v.ID] {
				return fmt.Errorf("insert comment %s: %w", v.ID, store.ErrConflict)
			}
			ids[v.ID] = true
		default:
			return fmt.Errorf("unsupported record %T", rec)
		}
	}
	return nil
}
