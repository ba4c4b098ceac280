package entity

import (
	"encoding/json"
	"time"
)

// Acciones de un evento de cambio.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// ChangeEvent describe una mutación de entidad para el subsistema de auditoría externo.
// Before y After son snapshots JSON (nil en creación y borrado respectivamente).
type ChangeEvent struct {
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Action        string          `json:"action"`
	Before        json.RawMessage `json:"before,omitempty"`
	After         json.RawMessage `json:"after,omitempty"`
	Actor         string          `json:"actor"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewChangeEvent serializa los snapshots. Un snapshot que no se puede serializar se omite.
func NewChangeEvent(entityType, entityID, action, actor string, before, after map[string]any, at time.Time) ChangeEvent {
	ev := ChangeEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		OccurredAt: at,
	}
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			ev.Before = b
		}
	}
	if after != nil {
		if b, err := json.Marshal(after); err == nil {
			ev.After = b
		}
	}
	return ev
}
