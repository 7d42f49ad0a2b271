package database

import (
	"time"

	"github.com/holocrononline/holocron/model"
	"github.com/holocrononline/holocron/tenant"
	"github.com/uptrace/bun"
)

// A like represents a row of the likes table. A tenant may like a subject
// once, enforced by the likes_name_tenant_id_key constraint.
type like struct {
	bun.BaseModel `bun:"table:likes"`

	ID       string `bun:",pk,type:varchar(36)"`
	TenantID string `bun:",notnull,type:varchar(255),unique:likes_name_tenant_id_key"`
	Name     string `bun:",notnull,type:varchar(100),unique:likes_name_tenant_id_key"`
}

// A comment represents a row of the comments table.
type comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID          string    `bun:",pk,type:varchar(36)"`
	TenantID    string    `bun:",notnull,type:varchar(255)"`
	Name        string    `bun:",notnull,type:varchar(100)"`
	DateWatched time.Time `bun:",notnull"`
	Rating      int       `bun:",notnull"`
	Review      string    `bun:",notnull,type:varchar(2000)"`
}

func newLike(r *model.Reaction) *like {
	return &like{
		ID:       r.ID,
		TenantID: string(r.TenantID),
		Name:     r.Name,
	}
}

func (l like) ModelReaction() model.Reaction {
	return model.Reaction{
		ID:       l.ID,
		TenantID: tenant.ID(l.TenantID),
		Name:     l.Name,
	}
}

func newComment(r *model.Review) *comment {
	return &comment{
		ID:          r.ID,
		TenantID:    string(r.TenantID),
		Name:        r.Name,
		DateWatched: r.DateWatched,
		Rating:      r.Rating,
		Review:      r.Text,
	}
}

func (c comment) ModelReview() model.Review {
	return model.Review{
		ID:          c.ID,
		TenantID:    tenant.ID(c.TenantID),
		Name:        c.Name,
		DateWatched: c.DateWatched,
		Rating:      c.Rating,
		Text:        c.Review,
	}
}
