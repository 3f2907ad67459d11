package credit

import "context"

// IntegrationHandler receives committed payments.
type IntegrationHandler interface {
	HandlePaymentRecorded(ctx context.Context, evt PaymentRecordedEvent) error
}
