// Package model defines the records persisted by the service.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/holocrononline/holocron/tenant"
)

// A Reaction represents a like of a subject by a single tenant.
type Reaction struct {
	ID       string    `json:"id"`
	TenantID tenant.ID `json:"-"`
	Name     string    `json:"name"`
}

// NewReaction returns a Reaction for the subject with a freshly generated id.
// The owner is left for attribution at commit time.
func NewReaction(name string) *Reaction {
	return &Reaction{
		ID:   uuid.NewString(),
		Name: name,
	}
}

func (r *Reaction) Owner() tenant.ID      { return r.TenantID }
func (r *Reaction) SetOwner(id tenant.ID) { r.TenantID = id }

// A Review represents a rating and review ("comment") of a subject.
type Review struct {
	ID          string    `json:"id"`
	TenantID    tenant.ID `json:"-"`
	Name        string    `json:"name"`
	DateWatched time.Time `json:"dateWatched"`
	Rating      int       `json:"rating"`
	Text        string    `json:"review"`
}

// NewReview returns a Review with a freshly generated id. The watch date is
// kept in UTC at microsecond precision, the resolution of the databases.
func NewReview(name string, dateWatched time.Time, rating int, text string) *Review {
	return &Review{
		ID:          uuid.NewString(),
		Name:        name,
		DateWatched: dateWatched.UTC().Truncate(time.Microsecond),
		Rating:      rating,
		Text:        text,
	}
}

func (r *Review) Owner() tenant.ID      { return r.TenantID }
func (r *Review) SetOwner(id tenant.ID) { r.TenantID = id }

// A Record is one of the tenant-scoped record kinds: *Reaction or *Review.
type Record interface {
	tenant.Scoped
	isRecord()
}

func (*Reaction) isRecord() {}
func (*Review) isRecord()   {}
