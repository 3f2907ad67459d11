package credit

// PaymentRecordedEvent carries an accepted payment to post-commit hooks.
type PaymentRecordedEvent struct {
	Receipt Receipt
}
