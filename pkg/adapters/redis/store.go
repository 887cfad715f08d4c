// Package redis persists campaigns in Redis and provides the distributed
// lock used to serialize interactive sessions across replicas.
//
// Campaigns are stored as JSON blobs at "{prefix}campaign:{id}" with an
// optional TTL, plus a sorted-set index at "{prefix}index" whose scores
// carry the expiry instant, so listings clean up expired entries lazily.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

const defaultPrefix = "sluice:"

// Store implements ports.ResultStore on a Redis backend.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix namespaces every key. The default is "sluice:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires campaigns after the given duration. Zero keeps them
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewFromClient creates a store on an existing Redis client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string { return s.prefix + "campaign:" + id }
func (s *Store) indexKey() string     { return s.prefix + "index" }

// expiryScore is the index score of an entry saved now: its expiry in unix
// milliseconds, or +inf without a TTL.
func (s *Store) expiryScore() float64 {
	if s.ttl <= 0 {
		return math.Inf(1)
	}
	return float64(time.Now().Add(s.ttl).UnixMilli())
}

// SaveCampaign writes the campaign blob and its index entry in one
// pipelined transaction.
func (s *Store) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", c.ID, err)
	}
	id := c.ID.String()
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(id), raw, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.expiryScore(), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save campaign %s: %w", id, err)
	}
	return nil
}

// LoadCampaign retrieves a campaign by ID.
func (s *Store) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCampaignNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign %s: %w", id, err)
	}
	var c results.Campaign
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

// ListCampaigns returns the stored campaign IDs in sorted order, dropping
// index entries whose TTL has passed.
func (s *Store) ListCampaigns(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("prune campaign index: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteCampaign removes a campaign and its index entry. Deleting a missing
// campaign is not an error.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}
	return nil
}
