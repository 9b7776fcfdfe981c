package amqp

import (
	"encoding/json"
	"fmt"

	"spendlog/internal/core"
)

// ContentType of every published body.
const ContentType = "application/json"

// EncodeChange serializes a change event for the wire.
func EncodeChange(ev core.ChangeEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal change event: %w", err)
	}
	return body, nil
}

// DecodeChange parses and sanity-checks a change event body.
func DecodeChange(body []byte) (core.ChangeEvent, error) {
	var ev core.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return core.ChangeEvent{}, fmt.Errorf("unmarshal change event: %w", err)
	}
	switch ev.Entity {
	case core.EntityCategory, core.EntityExpense:
	default:
		return core.ChangeEvent{}, fmt.Errorf("unknown entity %q", ev.Entity)
	}
	switch ev.Action {
	case core.ActionCreated, core.ActionUpdated, core.ActionDeleted:
	default:
		return core.ChangeEvent{}, fmt.Errorf("unknown action %q", ev.Action)
	}
	if ev.ID <= 0 {
		return core.ChangeEvent{}, fmt.Errorf("invalid id %d", ev.ID)
	}
	return ev, nil
}
