package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/results"
)

// Store implements ports.ResultStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// SaveCampaign persists the campaign in memory. Campaigns are stored
// serialized so later mutations of the caller's copy never leak in.
func (s *Store) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode campaign %s: %w", c.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c.ID.String()] = raw
	return nil
}

// LoadCampaign retrieves a campaign from memory.
func (s *Store) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	s.mu.RLock()
	raw, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}

	var c results.Campaign
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

// DeleteCampaign removes a campaign. Deleting a missing campaign is a no-op.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// ListCampaigns returns the stored campaign IDs in deterministic order.
func (s *Store) ListCampaigns(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
