package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/results"
)

// MockStore is a simple map-based store for testing middleware. It hands
// back the exact campaign value it was given, so tests can inspect what a
// middleware passed down.
type MockStore struct {
	data map[string]*results.Campaign
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*results.Campaign),
	}
}

func (s *MockStore) SaveCampaign(ctx context.Context, c *results.Campaign) error {
	s.data[c.ID.String()] = c
	return nil
}

func (s *MockStore) LoadCampaign(ctx context.Context, id string) (*results.Campaign, error) {
	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return c, nil
}

func (s *MockStore) DeleteCampaign(ctx context.Context, id string) error {
	delete(s.data, id)
	return nil
}

func (s *MockStore) ListCampaigns(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ ports.ResultStore = (*MockStore)(nil)
