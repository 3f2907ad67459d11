package sales

import "context"

// IntegrationHandler receives finalized sales.
type IntegrationHandler interface {
	HandleSaleCompleted(ctx context.Context, evt SaleCompletedEvent) error
}
