package sales

// SaleCompletedEvent carries a finalized sale to post-commit hooks.
type SaleCompletedEvent struct {
	Record Record
}
