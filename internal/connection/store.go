package connection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a connection identifier stays valid without renewal.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists one connection identifier per user.
//
// Implementations receive the HTTP exchange so that browser-bound stores can
// read and set cookies; keyed stores ignore it and use the user identity.
type Store interface {
	Lookup(r *http.Request, user string) (string, error)
	Persist(w http.ResponseWriter, r *http.Request, user, id string) error
}

// KeyedStore is a Store that is addressed by user identity alone, so it can
// serve callers without a browser exchange (MCP tools, the CLI).
type KeyedStore interface {
	Store
	Get(ctx context.Context, user string) (string, error)
	Put(ctx context.Context, user, id string) error
}

// StoredID returns the identifier persisted for user when store is keyed,
// and "" for browser-bound stores.
func StoredID(ctx context.Context, store Store, user string) (string, error) {
	ks, ok := store.(KeyedStore)
	if !ok || user == "" {
		return "", nil
	}
	return ks.Get(ctx, user)
}

// CookieName is the cookie holding the connection identifier.
const CookieName = "composio_user_id"

// CookieStore keeps the identifier in an HttpOnly browser cookie. The value
// is "<id>.<owner>", where owner is a hash of the identity that persisted it,
// so a browser shared between accounts never hands one user's connection to
// another.
type CookieStore struct {
	TTL    time.Duration
	Secure bool
}

// NewCookieStore creates a CookieStore with the given lifetime.
func NewCookieStore(ttl time.Duration, secure bool) *CookieStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CookieStore{TTL: ttl, Secure: secure}
}

// CookieValue encodes id as owned by user.
func CookieValue(user, id string) string {
	return id + "." + ownerTag(user)
}

func ownerTag(user string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(user)))
	return hex.EncodeToString(sum[:8])
}

// Lookup returns the identifier only when the cookie belongs to user.
// Cookies without an owner, or owned by someone else, read as absent.
func (s *CookieStore) Lookup(r *http.Request, user string) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || user == "" {
		return "", nil
	}
	dot := strings.LastIndexByte(c.Value, '.')
	if dot <= 0 || c.Value[dot+1:] != ownerTag(user) {
		return "", nil
	}
	return c.Value[:dot], nil
}

func (s *CookieStore) Persist(w http.ResponseWriter, _ *http.Request, user string, id string) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    CookieValue(user, id),
		Path:     "/",
		MaxAge:   int(s.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the connection identifier cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// MemoryStore keeps identifiers in process memory, keyed by user.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	id      string
	expires time.Time
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Lookup(r *http.Request, user string) (string, error) {
	return s.Get(r.Context(), user)
}

func (s *MemoryStore) Persist(_ http.ResponseWriter, r *http.Request, user, id string) error {
	return s.Put(r.Context(), user, id)
}

// Get returns the live identifier for user, or "".
func (s *MemoryStore) Get(_ context.Context, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[user]
	if !ok {
		return "", nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, user)
		return "", nil
	}
	return e.id, nil
}

// Put stores id for user and renews its expiry.
func (s *MemoryStore) Put(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[user] = memoryEntry{id: id, expires: s.now().Add(s.ttl)}
	return nil
}

// Ping reports store health; the memory store is always available.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
