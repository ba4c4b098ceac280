package ports

import (
	"context"

	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
)

// EventEmitter publica eventos de cambio hacia el subsistema de auditoría.
// Se invoca después del commit y no debe bloquear al llamador ni devolver error:
// la entrega es responsabilidad de la implementación.
type EventEmitter interface {
	Emit(ctx context.Context, event entity.ChangeEvent)
}

// NopEmitter descarta los eventos.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, entity.ChangeEvent) {}
