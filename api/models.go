package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holocrononline/holocron/model"
)

// A Like represents a persisted like.
type Like struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// A Comment represents a persisted comment. The owner is never exposed.
type Comment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DateWatched time.Time `json:"dateWatched"`
	Rating      int       `json:"rating"`
	Review      string    `json:"review"`
}

func newLike(r *model.Reaction) Like {
	return Like{
		ID:   r.ID,
		Name: r.Name,
	}
}

func newComment(r model.Review) Comment {
	return Comment{
		ID:          r.ID,
		Name:        r.Name,
		DateWatched: r.DateWatched,
		Rating:      r.Rating,
		Review:      r.Text,
	}
}

// date accepts either a calendar date or an RFC 3339 timestamp.
type date time.Time

func (d *date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = date(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}
