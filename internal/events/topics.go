package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated     = "order.created"
	TopicOrderVoided      = "order.voided"
	TopicPaymentSettled   = "payment.settled"
	TopicPaymentFailed    = "payment.failed"
	TopicInvoiceSubmitted = "invoice.submitted"
	TopicInvoiceFailed    = "invoice.failed"
)

// DefaultTopics returns the canonical list of topics downstream consumers may subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderVoided,
		TopicPaymentSettled,
		TopicPaymentFailed,
		TopicInvoiceSubmitted,
		TopicInvoiceFailed,
	}
}
