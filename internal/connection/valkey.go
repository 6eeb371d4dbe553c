package connection

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/teemow/meetview/internal/logging"
)

// ValkeyConfig configures a ValkeyStore.
type ValkeyConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// ValkeyStore keeps identifiers in Valkey with a renewable expiry. Keys are
// derived from a hash of the user identity, never the raw email.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore connects to Valkey.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey at %s: %w", cfg.Address, err)
	}
	return NewValkeyStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewValkeyStoreWithClient wraps an existing client.
func NewValkeyStoreWithClient(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) key(user string) string {
	return s.prefix + "connection:" + logging.AnonymizeEmail(user)
}

func (s *ValkeyStore) Lookup(r *http.Request, user string) (string, error) {
	return s.Get(r.Context(), user)
}

func (s *ValkeyStore) Persist(_ http.ResponseWriter, r *http.Request, user, id string) error {
	return s.Put(r.Context(), user, id)
}

// Get returns the identifier stored for user, or "".
func (s *ValkeyStore) Get(ctx context.Context, user string) (string, error) {
	id, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(user)).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read connection identifier: %w", err)
	}
	return id, nil
}

// Put stores id for user with a fresh expiry. The write is not abandoned
// when the caller goes away.
func (s *ValkeyStore) Put(ctx context.Context, user, id string) error {
	ctx = context.WithoutCancel(ctx)
	cmd := s.client.B().Set().Key(s.key(user)).Value(id).ExSeconds(int64(s.ttl/time.Second)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store connection identifier: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness checks.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the underlying client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}
