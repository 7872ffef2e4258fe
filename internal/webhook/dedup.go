package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup short-circuits provider redeliveries of the same message id.
// Providers retry on non-2xx responses, so the same inbound message can
// arrive more than once. A message id is only recorded after the
// pipeline handled it; a failed attempt leaves no trace so the retry is
// processed normally.
type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedup(client *redis.Client, ttl time.Duration) *Dedup {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedup{client: client, ttl: ttl}
}

func dedupKey(provider, messageID string) string {
	return fmt.Sprintf("webhook:seen:%s:%s", provider, messageID)
}

// Seen reports whether the provider message id was already handled. It
// never writes. A nil Dedup or an empty message id never matches.
func (d *Dedup) Seen(ctx context.Context, provider, messageID string) (bool, error) {
	if d == nil || d.client == nil || messageID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, dedupKey(provider, messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("webhook: dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the provider message id as handled. Called only after the
// pipeline succeeded.
func (d *Dedup) Mark(ctx context.Context, provider, messageID string) error {
	if d == nil || d.client == nil || messageID == "" {
		return nil
	}
	if err := d.client.SetNX(ctx, dedupKey(provider, messageID), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("webhook: dedup mark: %w", err)
	}
	return nil
}
