package events

// Topic constants for domain events emitted by the POS.
const (
	TopicInvoiceCreated    = "invoice.created"
	TopicInvoiceUpdated    = "invoice.updated"
	TopicCustomerCreated   = "customer.created"
	TopicCommissionSettled = "commission.settled"
	TopicPurchaseCreated   = "purchase.created"
	TopicPurchaseUpdated   = "purchase.updated"
	TopicProductChanged    = "product.changed"
	TopicCategoryChanged   = "category.changed"
	TopicSupplierChanged   = "supplier.changed"
	TopicSchoolCreated     = "school.created"
)

// Asynq task types the worker consumes.
const (
	TaskInvoiceEvent = "events:invoice"
	TaskGenericEvent = "events:generic"
)

// DefaultTopics returns every topic the service emits.
func DefaultTopics() []string {
	return []string{
		TopicInvoiceCreated,
		TopicInvoiceUpdated,
		TopicCustomerCreated,
		TopicCommissionSettled,
		TopicPurchaseCreated,
		TopicPurchaseUpdated,
		TopicProductChanged,
		TopicCategoryChanged,
		TopicSupplierChanged,
		TopicSchoolCreated,
	}
}

// TaskTypeFor returns the asynq task type an event on topic is queued as.
// Invoice, purchase and product events change stock, so the worker treats
// them apart.
func TaskTypeFor(topic string) string {
	switch topic {
	case TopicInvoiceCreated, TopicInvoiceUpdated, TopicPurchaseCreated, TopicPurchaseUpdated, TopicProductChanged:
		return TaskInvoiceEvent
	default:
		return TaskGenericEvent
	}
}
