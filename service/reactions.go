package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/store"
	"github.com/holocrononline/holocron/tenant"
	"github.com/holocrononline/holocron/validator"
)

const (
	msgAlreadyLiked = "You have already liked this person."
	msgNotLiked     = "You have not liked this person."
)

// Reactions manages likes. A tenant likes a subject at most once.
type Reactions struct {
	Store  *store.Store
	Cache  CountCache
	Val    *validator.Validator
	Logger *slog.Logger
}

type subject struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

// Count returns the number of tenants that like name.
func (s *Reactions) Count(ctx context.Context, name string) (int, error) {
	return cachedCount(ctx, s.Cache, s.Logger, likesCollection, name, s.Store.CountReactions)
}

// HasReacted reports whether actor likes name.
func (s *Reactions) HasReacted(ctx context.Context, actor tenant.ID, name string) (bool, error) {
	if !actor.Present() {
		return false, ErrUnauthenticated
	}

	_, err := s.Store.FindReaction(ctx, name, actor)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, internal("find like", err)
	}
	return true, nil
}

// Create records that actor likes name. The caller is expected to have
// passed the authorization gate; the owner of the new like is stamped at
// commit time.
func (s *Reactions) Create(ctx context.Context, actor tenant.ID, name string) (*model.Reaction, error) {
	if errs := s.Val.ValidateStruct(subject{Name: name}); len(errs) > 0 {
		return nil, invalid(errs)
	}

	_, err := s.Store.FindReaction(ctx, name, actor)
	switch {
	case err == nil:
		return nil, &Error{Kind: KindConflict, Message: msgAlreadyLiked}
	case !errors.Is(err, store.ErrNotFound):
		return nil, internal("find like", err)
	}

	like := model.NewReaction(name)
	var changes store.Changes
	changes.Add(like)
	if err := s.Store.Commit(ctx, actor, &changes); err != nil {
		// A concurrent like by the same tenant won the race past the check
		// above; the unique constraint caught it.
		if errors.Is(err, store.ErrConflict) {
			return nil, &Error{Kind: KindConflict, Message: msgAlreadyLiked, Err: err}
		}
		return nil, internal("commit like", err)
	}

	invalidateCount(ctx, s.Cache, s.Logger, likesCollection, name)
	s.Logger.Info("Like created", "id", like.ID, "name", name)
	return like, nil
}

// Delete removes actor's like of name.
func (s *Reactions) Delete(ctx context.Context, actor tenant.ID, name string) error {
	if !actor.Present() {
		return ErrUnauthenticated
	}

	like, err := s.Store.FindReaction(ctx, name, actor)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: msgNotLiked}
	case err != nil:
		return internal("find like", err)
	}

	var changes store.Changes
	changes.Remove(like)
	if err := s.Store.Commit(ctx, actor, &changes); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Error{Kind: KindNotFound, Message: msgNotLiked, Err: err}
		}
		return internal("commit like removal", err)
	}

	invalidateCount(ctx, s.Cache, s.Logger, likesCollection, name)
	s.Logger.Info("Like deleted", "id", like.ID, "name", name)
	return nil
}
