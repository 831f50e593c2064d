package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"affiliate-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// RateSnapshotStore implements ports.RateSnapshotStore. Snapshots are kept
// without expiry; a stale snapshot is still better than none at startup.
type RateSnapshotStore struct {
	client *goredis.Client
	prefix string
}

// NewRateSnapshotStore creates a new Redis-backed snapshot store.
func NewRateSnapshotStore(client *goredis.Client) *RateSnapshotStore {
	return &RateSnapshotStore{
		client: client,
		prefix: "exchange:rates:",
	}
}

func (s *RateSnapshotStore) key(base string) string {
	return s.prefix + domain.NormalizeCurrency(base)
}

// Save stores snap under its base currency, replacing any previous one.
func (s *RateSnapshotStore) Save(ctx context.Context, snap *domain.RateSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal rate snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snap.Base), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set rate snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot stored for base, or nil if none exists.
func (s *RateSnapshotStore) Load(ctx context.Context, base string) (*domain.RateSnapshot, error) {
	b, err := s.client.Get(ctx, s.key(base)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get rate snapshot: %w", err)
	}

	var snap domain.RateSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal rate snapshot: %w", err)
	}
	return &snap, nil
}
