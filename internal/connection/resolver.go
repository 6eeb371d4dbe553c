package connection

import (
	"github.com/google/uuid"
)

// Resolver returns a stable connection identity for a user.
type Resolver struct {
	newID func() string
}

// NewResolver creates a Resolver generating random UUIDs.
func NewResolver() *Resolver {
	return &Resolver{newID: uuid.NewString}
}

// Resolve returns stored unchanged when present, otherwise a freshly generated
// identifier. created reports whether a new identifier was generated, in
// which case the caller must persist it.
func (r *Resolver) Resolve(stored string) (id string, created bool) {
	if stored != "" {
		return stored, false
	}
	return r.newID(), true
}
