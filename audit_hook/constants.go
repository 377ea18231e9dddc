package audithook

// Action constants for audit events.
const (
	// Pool actions
	ActionPoolInitialized = "pool.initialized"
	ActionPoolFunded      = "pool.funded"

	// Distribution actions
	ActionDistributionRequested = "distribution.requested"
	ActionDistributionRejected  = "distribution.rejected"

	// Settlement actions
	ActionTransferSucceeded = "transfer.succeeded"
	ActionTransferFailed    = "transfer.failed"
	ActionSettlementFailed  = "settlement.failed"

	// Admin actions
	ActionCapUpdated = "cap.updated"
	ActionPaused     = "faucet.paused"
)

// Resource constants for audit events.
const (
	ResourcePool     = "pool"
	ResourceFunding  = "funding"
	ResourceTransfer = "transfer"
	ResourceAccount  = "account"
)

// Category constants for audit events.
const (
	CategoryFunding      = "funding"
	CategoryDistribution = "distribution"
	CategorySettlement   = "settlement"
	CategoryAdmin        = "admin"
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
