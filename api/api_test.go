package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/service"
	"github.com/holocrononline/holocron/tenant"
	"github.com/holocrononline/holocron/validator"
	"github.com/neilotoole/slogt"
)

// withActor authenticates every request as the tenant named in the
// X-Test-Tenant header.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-Tenant"); id != "" {
			r = r.WithContext(tenant.WithID(r.Context(), tenant.ID(id)))
		}
		next.ServeHTTP(w, r)
	})
}

func TestAPI_likes(t *testing.T) {
	tests := []struct {
		name       string
		likes      *testlikes
		method     string
		path       string
		actor      string
		wantStatus int
		wantBody   string
	}{
		{
			name:   "Count",
			method: "GET",
			path:   "/api/likes/Luke",
			likes: &testlikes{
				count: func(t *testing.T, name string) (int, error) {
					if name != "Luke" {
						t.Errorf("Got name %q, want Luke", name)
					}
					return 2, nil
				},
			},
			wantStatus: 200,
			wantBody:   `2`,
		},
		{
			name:   "CountError",
			method: "GET",
			path:   "/api/likes/Luke",
			likes: &testlikes{
				count: func(t *testing.T, name string) (int, error) {
					return 0, &service.Error{Kind: service.KindInternal, Err: errors.New("db down")}
				},
			},
			wantStatus: 500,
			wantBody: `{
				"error": "Could not count likes"
			}`,
		},
		{
			name:       "HasLikedAnonymous",
			method:     "GET",
			path:       "/api/likes/Leia/me",
			likes:      &testlikes{},
			wantStatus: 401,
			wantBody: `{
				"error": "Unauthorized"
			}`,
		},
		{
			name:   "HasLiked",
			method: "GET",
			path:   "/api/likes/Leia/me",
			actor:  "user1",
			likes: &testlikes{
				hasReacted: func(t *testing.T, actor tenant.ID, name string) (bool, error) {
					if actor != "user1" {
						t.Errorf("Got actor %q, want user1", actor)
					}
					return true, nil
				},
			},
			wantStatus: 200,
			wantBody:   `true`,
		},
		{
			name:   "Create",
			method: "POST",
			path:   "/api/likes/Han",
			actor:  "user1",
			likes: &testlikes{
				create: func(t *testing.T, actor tenant.ID, name string) (*model.Reaction, error) {
					return &model.Reaction{ID: "1", Name: name, TenantID: actor}, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"id": "1",
				"name": "Han"
			}`,
		},
		{
			name:   "CreateConflict",
			method: "POST",
			path:   "/api/likes/Han",
			actor:  "user1",
			likes: &testlikes{
				create: func(t *testing.T, actor tenant.ID, name string) (*model.Reaction, error) {
					return nil, &service.Error{Kind: service.KindConflict, Message: "You have already liked this person."}
				},
			},
			wantStatus: 409,
			wantBody: `{
				"error": "You have already liked this person."
			}`,
		},
		{
			name:       "CreateAnonymous",
			method:     "POST",
			path:       "/api/likes/Han",
			likes:      &testlikes{},
			wantStatus: 401,
			wantBody: `{
				"error": "Unauthorized"
			}`,
		},
		{
			name:   "DeleteNotFound",
			method: "DELETE",
			path:   "/api/likes/Chewie",
			actor:  "user1",
			likes: &testlikes{
				delete: func(t *testing.T, actor tenant.ID, name string) error {
					return &service.Error{Kind: service.KindNotFound, Message: "You have not liked this person."}
				},
			},
			wantStatus: 404,
			wantBody: `{
				"error": "You have not liked this person."
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.likes.T = t
			api := &API{
				Likes:        tt.likes,
				Comments:     &testcomments{T: t},
				Logger:       slogt.New(t),
				Authenticate: withActor,
			}

			srv := httptest.NewServer(api)
			defer srv.Close()

			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			if tt.actor != "" {
				req.Header.Set("X-Test-Tenant", tt.actor)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_deleteLike(t *testing.T) {
	var deleted string
	api := &API{
		Likes: &testlikes{
			T: t,
			delete: func(t *testing.T, actor tenant.ID, name string) error {
				deleted = string(actor) + "/" + name
				return nil
			},
		},
		Logger:       slogt.New(t),
		Authenticate: withActor,
	}

	srv := httptest.NewServer(api)
	defer srv.Close()

	req, _ := http.NewRequest("DELETE", srv.URL+"/api/likes/Chewie", nil)
	req.Header.Set("X-Test-Tenant", "user1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 204)
	if deleted != "user1/Chewie" {
		t.Errorf("Got delete of %q, want user1/Chewie", deleted)
	}
}

func TestAPI_comments(t *testing.T) {
	watched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		comments   *testcomments
		method     string
		path       string
		actor      string
		wantStatus int
		wantBody   string
	}{
		{
			name:   "List",
			method: "GET",
			path:   "/api/comments/Yoda",
			comments: &testcomments{
				list: func(t *testing.T, name string) ([]model.Review, error) {
					return []model.Review{
						{ID: "1", TenantID: "secret-owner", Name: "Yoda", DateWatched: watched, Rating: 9, Text: "Wise"},
					}, nil
				},
			},
			wantStatus: 200,
			wantBody: `[
				{
					"id": "1",
					"name": "Yoda",
					"dateWatched": "2024-01-01T00:00:00Z",
					"rating": 9,
					"review": "Wise"
				}
			]`,
		},
		{
			name:   "ListEmpty",
			method: "GET",
			path:   "/api/comments/Nobody",
			comments: &testcomments{
				list: func(t *testing.T, name string) ([]model.Review, error) {
					return []model.Review{}, nil
				},
			},
			wantStatus: 200,
			wantBody:   `[]`,
		},
		{
			name:   "Count",
			method: "GET",
			path:   "/api/comments/Yoda/count",
			comments: &testcomments{
				count: func(t *testing.T, name string) (int, error) {
					return 3, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"name": "Yoda",
				"count": 3
			}`,
		},
		{
			name:   "HasCommentedAnonymous",
			method: "GET",
			path:   "/api/comments/Yoda/me",
			comments: &testcomments{
				hasReviewed: func(t *testing.T, actor tenant.ID, name string) (bool, error) {
					return false, service.ErrUnauthenticated
				},
			},
			wantStatus: 401,
			wantBody: `{
				"error": "Unauthorized"
			}`,
		},
		{
			name:   "HasCommented",
			method: "GET",
			path:   "/api/comments/Yoda/me",
			actor:  "user2",
			comments: &testcomments{
				hasReviewed: func(t *testing.T, actor tenant.ID, name string) (bool, error) {
					return actor == "user1", nil
				},
			},
			wantStatus: 200,
			wantBody:   `false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.comments.T = t
			api := &API{
				Likes:        &testlikes{T: t},
				Comments:     tt.comments,
				Logger:       slogt.New(t),
				Authenticate: withActor,
			}

			srv := httptest.NewServer(api)
			defer srv.Close()

			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			if tt.actor != "" {
				req.Header.Set("X-Test-Tenant", tt.actor)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_createComment(t *testing.T) {
	tests := []struct {
		name         string
		comments     *testcomments
		actor        string
		req          string
		wantStatus   int
		wantBody     string
		wantLocation string
		containsLog  string
	}{
		{
			name:       "Anonymous",
			req:        `{}`,
			comments:   &testcomments{},
			wantStatus: 401,
			wantBody: `{
				"error": "Unauthorized"
			}`,
		},
		{
			name:       "InvalidJSON",
			actor:      "user1",
			req:        `not json`,
			comments:   &testcomments{},
			wantStatus: 400,
			wantBody: `{
				"error": "Could not decode request body"
			}`,
		},
		{
			name:  "ValidationFailed",
			actor: "user1",
			req: `{
				"name": "Luke",
				"dateWatched": "2024-01-01",
				"rating": 11,
				"review": "Too good"
			}`,
			comments: &testcomments{
				create: func(t *testing.T, actor tenant.ID, req service.NewReview) (*model.Review, error) {
					return nil, &service.Error{
						Kind:    service.KindInvalidArgument,
						Message: "One or more validation errors occurred.",
						Violations: []validator.ValidationError{
							{Field: "rating", Message: "Rating must be between 1 and 10."},
						},
					}
				},
			},
			wantStatus: 400,
			wantBody: `{
				"error": "One or more validation errors occurred.",
				"errors": [
					{"field": "rating", "message": "Rating must be between 1 and 10."}
				]
			}`,
		},
		{
			name:  "StoreError",
			actor: "user1",
			req: `{
				"name": "Luke",
				"dateWatched": "2024-01-01T20:30:00Z",
				"rating": 8,
				"review": "Good"
			}`,
			comments: &testcomments{
				create: func(t *testing.T, actor tenant.ID, req service.NewReview) (*model.Review, error) {
					return nil, &service.Error{Kind: service.KindInternal, Err: errors.New("disk full")}
				},
			},
			wantStatus: 500,
			wantBody: `{
				"error": "Could not create comment"
			}`,
			containsLog: "disk full",
		},
		{
			name:  "OK",
			actor: "user1",
			req: `{
				"name": "Obi-Wan Kenobi",
				"dateWatched": "2024-01-01",
				"rating": 10,
				"review": "Hello there",
				"tenantId": "spoofed"
			}`,
			comments: &testcomments{
				create: func(t *testing.T, actor tenant.ID, req service.NewReview) (*model.Review, error) {
					if actor != "user1" {
						t.Errorf("Got actor %q, want user1", actor)
					}
					want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
					if !req.DateWatched.Equal(want) {
						t.Errorf("Got DateWatched %v, want %v", req.DateWatched, want)
					}
					return &model.Review{
						ID:          "1",
						TenantID:    actor,
						Name:        req.Name,
						DateWatched: req.DateWatched,
						Rating:      req.Rating,
						Text:        req.Review,
					}, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"id": "1",
				"name": "Obi-Wan Kenobi",
				"dateWatched": "2024-01-01T00:00:00Z",
				"rating": 10,
				"review": "Hello there"
			}`,
			wantLocation: "/api/comments/Obi-Wan%20Kenobi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.comments.T = t
			api := &API{
				Likes:        &testlikes{T: t},
				Comments:     tt.comments,
				Logger:       slog.New(slog.NewTextHandler(buf, nil)),
				Authenticate: withActor,
			}

			srv := httptest.NewServer(api)
			defer srv.Close()

			req, _ := http.NewRequest("POST", srv.URL+"/api/comments", strings.NewReader(tt.req))
			if tt.actor != "" {
				req.Header.Set("X-Test-Tenant", tt.actor)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			if got := resp.Header.Get("Location"); got != tt.wantLocation {
				t.Errorf("Got Location %q, want %q", got, tt.wantLocation)
			}
			checkBody(t, resp, tt.wantBody)
			checkLog(t, buf, tt.containsLog)
		})
	}
}

func TestAPI_health(t *testing.T) {
	api := &API{Logger: slogt.New(t)}
	srv := httptest.NewServer(api)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{"status": "ok"}`)
}

type testlikes struct {
	T          *testing.T
	count      func(t *testing.T, name string) (int, error)
	hasReacted func(t *testing.T, actor tenant.ID, name string) (bool, error)
	create     func(t *testing.T, actor tenant.ID, name string) (*model.Reaction, error)
	delete     func(t *testing.T, actor tenant.ID, name string) error
}

func (l *testlikes) Count(_ context.Context, name string) (int, error) {
	return l.count(l.T, name)
}

func (l *testlikes) HasReacted(_ context.Context, actor tenant.ID, name string) (bool, error) {
	return l.hasReacted(l.T, actor, name)
}

func (l *testlikes) Create(_ context.Context, actor tenant.ID, name string) (*model.Reaction, error) {
	return l.create(l.T, actor, name)
}

func (l *testlikes) Delete(_ context.Context, actor tenant.ID, name string) error {
	return l.delete(l.T, actor, name)
}

type testcomments struct {
	T           *testing.T
	list        func(t *testing.T, name string) ([]model.Review, error)
	count       func(t *testing.T, name string) (int, error)
	hasReviewed func(t *testing.T, actor tenant.ID, name string) (bool, error)
	create      func(t *testing.T, actor tenant.ID, req service.NewReview) (*model.Review, error)
}

func (c *testcomments) List(_ context.Context, name string) ([]model.Review, error) {
	return c.list(c.T, name)
}

func (c *testcomments) Count(_ context.Context, name string) (int, error) {
	return c.count(c.T, name)
}

func (c *testcomments) HasReviewed(_ context.Context, actor tenant.ID, name string) (bool, error) {
	return c.hasReviewed(c.T, actor, name)
}

func (c *testcomments) Create(_ context.Context, actor tenant.ID, req service.NewReview) (*model.Review, error) {
	return c.create(c.T, actor, req)
}

func checkStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("Got HTTP status %d, want %d", got, want)
	}
}

func checkBody(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	gotBody := normalizeJSON(t, resp.Body)
	wantBody := normalizeJSON(t, bytes.NewReader([]byte(want)))
	if gotBody != wantBody {
		t.Errorf("Body does not match\nGot\n  %s\n\nWant\n  %s", gotBody, wantBody)
	}
}

func checkLog(t *testing.T, buffer *bytes.Buffer, want string) {
	t.Helper()

	if s := buffer.String(); want != "" && !strings.Contains(s, want) {
		t.Errorf("Log does not contain  %s\n", want)
	}
}

func normalizeJSON(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Could not read JSON: %v", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return ""
	}
	if err := json.Indent(&buf, b, "  ", "  "); err != nil {
		t.Fatalf("Could not indent JSON: %v", err)
	}
	return strings.TrimSpace(buf.String())
}
