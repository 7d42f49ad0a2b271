// Package tenant identifies the caller a record belongs to and stamps that
// identity onto records as they are committed.
package tenant

import "context"

// ID is the stable identifier of the authenticated caller on whose behalf a
// record is created. The zero value means no caller was resolved.
type ID string

// Anonymous is the ID of a request that carried no credentials.
const Anonymous ID = ""

// Present reports whether the ID identifies a caller.
func (id ID) Present() bool { return id != Anonymous }

func (id ID) String() string { return string(id) }

// Scoped is implemented by records whose owner is populated exclusively by
// server-side attribution.
type Scoped interface {
	Owner() ID
	SetOwner(ID)
}

// Attribute stamps actor as the owner of every record, replacing whatever
// owner the record was built with. An absent actor leaves the records as they
// are, so system writes pass through untouched.
func Attribute(actor ID, records ...Scoped) {
	if !actor.Present() {
		return
	}
	for _, r := range records {
		r.SetOwner(actor)
	}
}

type contextKey struct{}

// WithID returns a copy of ctx carrying id as the caller identity.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) ID {
	id, _ := ctx.Value(contextKey{}).(ID)
	return id
}
