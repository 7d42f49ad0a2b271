// Package api provides the REST endpoints for likes and comments.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/holocrononline/holocron/auth"
	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/service"
	"github.com/holocrononline/holocron/tenant"
	"github.com/holocrononline/holocron/validator"
)

// Likes provides the like operations.
type Likes interface {
	Count(ctx context.Context, name string) (int, error)
	HasReacted(ctx context.Context, actor tenant.ID, name string) (bool, error)
	Create(ctx context.Context, actor tenant.ID, name string) (*model.Reaction, error)
	Delete(ctx context.Context, actor tenant.ID, name string) error
}

// Comments provides the comment operations.
type Comments interface {
	List(ctx context.Context, name string) ([]model.Review, error)
	Count(ctx context.Context, name string) (int, error)
	HasReviewed(ctx context.Context, actor tenant.ID, name string) (bool, error)
	Create(ctx context.Context, actor tenant.ID, req service.NewReview) (*model.Review, error)
}

// API provides the REST endpoints for the application.
type API struct {
	Logger   *slog.Logger
	Likes    Likes
	Comments Comments
	// Authenticate resolves the caller identity. Without it every request is
	// anonymous.
	Authenticate   func(http.Handler) http.Handler
	AllowedOrigins []string

	once    sync.Once
	handler http.Handler
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.health)

	mux.HandleFunc("GET /api/likes/{name}", a.countLikes)
	mux.Handle("GET /api/likes/{name}/me", auth.Require(http.HandlerFunc(a.hasLiked)))
	mux.Handle("POST /api/likes/{name}", auth.Require(http.HandlerFunc(a.createLike)))
	mux.Handle("DELETE /api/likes/{name}", auth.Require(http.HandlerFunc(a.deleteLike)))

	mux.HandleFunc("GET /api/comments/{name}", a.listComments)
	mux.Handle("POST /api/comments", auth.Require(http.HandlerFunc(a.createComment)))
	mux.HandleFunc("GET /api/comments/{name}/count", a.countComments)
	mux.HandleFunc("GET /api/comments/{name}/me", a.hasCommented)

	var h http.Handler = mux
	if a.Authenticate != nil {
		h = a.Authenticate(h)
	}
	if len(a.AllowedOrigins) > 0 {
		h = cors.Handler(cors.Options{
			AllowedOrigins:   a.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Location"},
			AllowCredentials: true,
			MaxAge:           300,
		})(h)
	}
	h = middleware.Recoverer(h)
	h = middleware.RealIP(h)
	h = middleware.RequestID(h)

	a.handler = h
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.handler.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

type errorResponse struct {
	Error  string                      `json:"error"`
	Errors []validator.ValidationError `json:"errors,omitempty"`
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, errorResponse{Error: msg})
}

// respondServiceError renders a service failure. Internal causes are logged
// and never sent to the client.
func (a *API) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var serr *service.Error
	msg := ""
	if errors.As(err, &serr) {
		msg = serr.Message
	}

	switch service.KindOf(err) {
	case service.KindUnauthenticated:
		a.respond(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case service.KindInvalidArgument:
		a.respond(w, http.StatusBadRequest, errorResponse{Error: msg, Errors: serr.Violations})
	case service.KindConflict:
		a.respond(w, http.StatusConflict, errorResponse{Error: orDefault(msg, "Conflict")})
	case service.KindNotFound:
		a.respond(w, http.StatusNotFound, errorResponse{Error: orDefault(msg, "Not found")})
	default:
		a.respondError(w, http.StatusInternalServerError, err, fallback)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	a.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) countLikes(w http.ResponseWriter, r *http.Request) {
	n, err := a.Likes.Count(r.Context(), r.PathValue("name"))
	if err != nil {
		a.respondServiceError(w, err, "Could not count likes")
		return
	}
	a.respond(w, http.StatusOK, n)
}

func (a *API) hasLiked(w http.ResponseWriter, r *http.Request) {
	actor := tenant.FromContext(r.Context())
	ok, err := a.Likes.HasReacted(r.Context(), actor, r.PathValue("name"))
	if err != nil {
		a.respondServiceError(w, err, "Could not look up like")
		return
	}
	a.respond(w, http.StatusOK, ok)
}

func (a *API) createLike(w http.ResponseWriter, r *http.Request) {
	actor := tenant.FromContext(r.Context())
	like, err := a.Likes.Create(r.Context(), actor, r.PathValue("name"))
	if err != nil {
		a.respondServiceError(w, err, "Could not create like")
		return
	}
	a.respond(w, http.StatusOK, newLike(like))
}

func (a *API) deleteLike(w http.ResponseWriter, r *http.Request) {
	actor := tenant.FromContext(r.Context())
	if err := a.Likes.Delete(r.Context(), actor, r.PathValue("name")); err != nil {
		a.respondServiceError(w, err, "Could not delete like")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	reviews, err := a.Comments.List(r.Context(), r.PathValue("name"))
	if err != nil {
		a.respondServiceError(w, err, "Could not list comments")
		return
	}

	out := make([]Comment, len(reviews))
	for i, rv := range reviews {
		out[i] = newComment(rv)
	}
	a.respond(w, http.StatusOK, out)
}

func (a *API) countComments(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	name := r.PathValue("name")
	n, err := a.Comments.Count(r.Context(), name)
	if err != nil {
		a.respondServiceError(w, err, "Could not count comments")
		return
	}
	a.respond(w, http.StatusOK, response{Name: name, Count: n})
}

func (a *API) hasCommented(w http.ResponseWriter, r *http.Request) {
	actor := tenant.FromContext(r.Context())
	ok, err := a.Comments.HasReviewed(r.Context(), actor, r.PathValue("name"))
	if err != nil {
		a.respondServiceError(w, err, "Could not look up comment")
		return
	}
	a.respond(w, http.StatusOK, ok)
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name        string `json:"name"`
		DateWatched date   `json:"dateWatched"`
		Rating      int    `json:"rating"`
		Review      string `json:"review"`
	}

	var body request
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return
	}

	err = r.Body.Close()
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return
	}

	actor := tenant.FromContext(r.Context())
	review, err := a.Comments.Create(r.Context(), actor, service.NewReview{
		Name:        body.Name,
		DateWatched: time.Time(body.DateWatched),
		Rating:      body.Rating,
		Review:      body.Review,
	})
	if err != nil {
		a.respondServiceError(w, err, "Could not create comment")
		return
	}

	w.Header().Set("Location", "/api/comments/"+url.PathEscape(review.Name))
	a.respond(w, http.StatusCreated, newComment(*review))
}
