package repository

import "context"

// SequenceKind identifica la serie de numeración (pedidos, comprobantes de pago, devoluciones).
type SequenceKind string

const (
	SequenceOrder   SequenceKind = "order"
	SequencePayment SequenceKind = "payment"
	SequenceReturn  SequenceKind = "return"
)

// SequenceRepository puerto para el generador de consecutivos diarios.
type SequenceRepository interface {
	// LatestWithPrefix bloquea la serie (kind, prefix) hasta el commit y devuelve el número
	// más alto que empieza por prefix, incluidos registros eliminados. Vacío si no hay ninguno.
	// Serializa a los generadores concurrentes aunque todavía no exista fila.
	LatestWithPrefix(ctx context.Context, kind SequenceKind, prefix string) (string, error)
}
