package inventory

import "context"

// IntegrationHandler receives committed catalog changes.
type IntegrationHandler interface {
	HandleCatalogChanged(ctx context.Context, evt CatalogChangedEvent) error
}
