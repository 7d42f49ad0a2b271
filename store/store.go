// Package store provides the commit path shared by every write in the
// service. Records added in a change set are attributed to the acting tenant
// before the backend persists them.
package store

import (
	"context"
	"errors"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/tenant"
)

var (
	// ErrNotFound is returned when a looked up record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Apply when a change set violates a
	// uniqueness constraint. Nothing in the change set is persisted.
	ErrConflict = errors.New("conflict")
)

// A Reader answers the queries the services need.
type Reader interface {
	CountReactions(ctx context.Context, name string) (int, error)
	FindReaction(ctx context.Context, name string, owner tenant.ID) (*model.Reaction, error)
	ListReviews(ctx context.Context, name string) ([]model.Review, error)
	CountReviews(ctx context.Context, name string) (int, error)
	HasReview(ctx context.Context, name string, owner tenant.ID) (bool, error)
}

// A Backend persists records. Apply must persist a change set atomically:
// either every added and removed record is applied or none is, and a
// cancelled context must leave no trace of the change set.
type Backend interface {
	Reader
	Apply(ctx context.Context, changes *Changes) error
}

// Changes is a pending change set.
type Changes struct {
	added   []model.Record
	removed []model.Record
}

// Add schedules records for insertion.
func (c *Changes) Add(records ...model.Record) {
	c.added = append(c.added, records...)
}

// Remove schedules records for deletion.
func (c *Changes) Remove(records ...model.Record) {
	c.removed = append(c.removed, records...)
}

// Added returns the records scheduled for insertion.
func (c *Changes) Added() []model.Record { return c.added }

// Removed returns the records scheduled for deletion.
func (c *Changes) Removed() []model.Record { return c.removed }

// Empty reports whether the change set holds no changes.
func (c *Changes) Empty() bool { return len(c.added) == 0 && len(c.removed) == 0 }

// Store wraps a Backend so that Commit is the only way to write to it.
type Store struct {
	Reader
	backend Backend
}

// New returns a Store committing to b.
func New(b Backend) *Store {
	return &Store{
		Reader:  b,
		backend: b,
	}
}

// Commit attributes every added record to actor and applies the change set.
// Removed records keep their owner.
func (s *Store) Commit(ctx context.Context, actor tenant.ID, changes *Changes) error {
	if changes.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scoped := make([]tenant.Scoped, len(changes.added))
	for i, r := range changes.added {
		scoped[i] = r
	}
	tenant.Attribute(actor, scoped...)

	return s.backend.Apply(ctx, changes)
}
