package audithook

// Action constants for audit events.
const (
	// Folder actions
	ActionFolderCreated = "folder.created"
	ActionFolderOpened  = "folder.opened"
	ActionFolderDeleted = "folder.deleted"

	// Record actions
	ActionRecordCreated    = "record.created"
	ActionRecordUpdated    = "record.updated"
	ActionRecordDeleted    = "record.deleted"
	ActionRecordReconciled = "record.reconciled"

	// Transaction actions
	ActionTransactionApplied = "transaction.applied"
	ActionTransactionEdited  = "transaction.edited"
	ActionTransactionRemoved = "transaction.removed"
)

// Resource constants for audit events.
const (
	ResourceFolder      = "folder"
	ResourceRecord      = "record"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryWorkspace = "workspace"
	CategoryLedger    = "ledger"
	CategoryMoney     = "money"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
