package messaging

// Topic names shared with the surrounding services. The payment service
// publishes confirmations on TopicNewPaymentID; this service publishes
// lifecycle events on the notification and activity topics.
const (
	TopicNewPaymentID   = "newPaymentId"
	TopicInvoiceCreated = "notification.invoice.created"
	TopicActivityLog    = "activity.invoice.log"
)
