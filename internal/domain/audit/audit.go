// Package audit defines the change log contract for pricing and stock edits.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tillpoint/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdatePricing Action = "update_pricing"
	ActionAdjustStock   Action = "adjust_stock"
)

// Entry is a single audit record with plain JSON changes.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	OperatorID string          `json:"operatorId,omitempty"`
	Changes    json.RawMessage `json:"changes"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Recorder writes audit entries inside the caller's transaction.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Diff calculates the difference between old and new states.
// Values are compared by their printed form, which suits decimals and ids.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}
