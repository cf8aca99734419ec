package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusInProgress = "IN_PROGRESS"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// ── User roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin = "ADMIN"
	UserRoleUser  = "USER"
)
