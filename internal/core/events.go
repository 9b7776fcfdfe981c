package core

import "time"

type (
	Entity string
	Action string
)

const (
	EntityCategory Entity = "category"
	EntityExpense  Entity = "expense"

	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ChangeEvent is published after a mutation commits.
type ChangeEvent struct {
	Entity     Entity    `json:"entity"`
	Action     Action    `json:"action"`
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewChangeEvent(entity Entity, action Action, id int64) ChangeEvent {
	return ChangeEvent{Entity: entity, Action: action, ID: id, OccurredAt: time.Now().UTC()}
}
