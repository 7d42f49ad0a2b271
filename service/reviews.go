package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/store"
	"github.com/holocrononline/holocron/tenant"
	"github.com/holocrononline/holocron/validator"
)

// NewReview is the input of Reviews.Create.
type NewReview struct {
	Name        string    `json:"name" validate:"notblank,max=100"`
	DateWatched time.Time `json:"dateWatched" validate:"required,notfuture"`
	Rating      int       `json:"rating" validate:"between=1 10"`
	Review      string    `json:"review" validate:"notblank,max=2000"`
}

// Reviews manages comments. A tenant may comment on the same subject more
// than once.
type Reviews struct {
	Store  *store.Store
	Cache  CountCache
	Val    *validator.Validator
	Logger *slog.Logger
}

// List returns every comment on name.
func (s *Reviews) List(ctx context.Context, name string) ([]model.Review, error) {
	reviews, err := s.Store.ListReviews(ctx, name)
	if err != nil {
		return nil, internal("list comments", err)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return reviews, nil
}

// Count returns the number of comments on name.
func (s *Reviews) Count(ctx context.Context, name string) (int, error) {
	return cachedCount(ctx, s.Cache, s.Logger, commentsCollection, name, s.Store.CountReviews)
}

// HasReviewed reports whether actor commented on name.
func (s *Reviews) HasReviewed(ctx context.Context, actor tenant.ID, name string) (bool, error) {
	if !actor.Present() {
		return false, ErrUnauthenticated
	}

	ok, err := s.Store.HasReview(ctx, name, actor)
	if err != nil {
		return false, internal("find comment", err)
	}
	return ok, nil
}

// Create validates req and stores it as a comment by actor. Nothing is
// written when validation fails.
func (s *Reviews) Create(ctx context.Context, actor tenant.ID, req NewReview) (*model.Review, error) {
	if errs := s.Val.ValidateStruct(req); len(errs) > 0 {
		return nil, invalid(errs)
	}

	review := model.NewReview(req.Name, req.DateWatched, req.Rating, req.Review)
	var changes store.Changes
	changes.Add(review)
	if err := s.Store.Commit(ctx, actor, &changes); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, &Error{Kind: KindConflict, Err: err}
		}
		return nil, internal("commit comment", err)
	}

	invalidateCount(ctx, s.Cache, s.Logger, commentsCollection, req.Name)
	s.Logger.Info("Comment created", "id", review.ID, "name", req.Name)
	return review, nil
}
