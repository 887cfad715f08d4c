package ports

import (
	"context"

	"github.com/aretw0/sluice/pkg/results"
)

// ResultStore defines the interface for persisting campaign results. This
// allows runs to be computed once and inspected later, including from other
// processes.
type ResultStore interface {
	// SaveCampaign persists the campaign under its ID, overwriting any
	// previous version.
	SaveCampaign(ctx context.Context, c *results.Campaign) error

	// LoadCampaign retrieves a campaign by ID.
	// Returns domain.ErrCampaignNotFound if it does not exist.
	LoadCampaign(ctx context.Context, id string) (*results.Campaign, error)

	// ListCampaigns returns the stored campaign IDs.
	ListCampaigns(ctx context.Context) ([]string, error)

	// DeleteCampaign removes a campaign by ID. Deleting a missing campaign
	// is not an error.
	DeleteCampaign(ctx context.Context, id string) error
}
