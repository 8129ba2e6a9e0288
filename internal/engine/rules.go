package engine

import "github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"

// Operation names a lifecycle transition request.
type Operation string

const (
	OpClaim    Operation = "claim"
	OpComplete Operation = "complete"
	OpApprove  Operation = "approve"
	OpPay      Operation = "pay"
)

// rule describes one row of the transition table: the exact source state,
// the role allowed to invoke the operation, the ownership predicate, and
// the resulting state.
type rule struct {
	from    tasks.Status
	role    tasks.Role
	allowed func(t tasks.Task, actorID int64) bool
	denyMsg string
	next    tasks.Status
}

func isCreator(t tasks.Task, actorID int64) bool {
	return t.CreatedBy == actorID
}

func isClaimant(t tasks.Task, actorID int64) bool {
	return t.ClaimedBy != nil && *t.ClaimedBy == actorID
}

func notCreator(t tasks.Task, actorID int64) bool {
	return t.CreatedBy != actorID
}

// transitions is the single source of truth for lifecycle edges. Payment
// initiation leaves the status untouched; the task only reaches paid
// through webhook reconciliation.
var transitions = map[Operation]rule{
	OpClaim: {
		from:    tasks.StatusOpen,
		role:    tasks.RoleWorker,
		allowed: notCreator,
		denyMsg: "you cannot claim your own task",
		next:    tasks.StatusClaimed,
	},
	OpComplete: {
		from:    tasks.StatusClaimed,
		role:    tasks.RoleWorker,
		allowed: isClaimant,
		denyMsg: "only the claimant can complete this task",
		next:    tasks.StatusCompleted,
	},
	OpApprove: {
		from:    tasks.StatusCompleted,
		role:    tasks.RoleBusiness,
		allowed: isCreator,
		denyMsg: "only the task creator can approve it",
		next:    tasks.StatusApproved,
	},
	OpPay: {
		from:    tasks.StatusApproved,
		role:    tasks.RoleBusiness,
		allowed: isCreator,
		denyMsg: "only the task creator can pay for it",
		next:    tasks.StatusApproved,
	},
}
