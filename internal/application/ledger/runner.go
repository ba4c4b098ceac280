package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// Tx unidad de trabajo de un caso de uso: repositorios atados a la transacción, actor,
// hora de la operación y los efectos que solo deben ocurrir tras el commit.
type Tx struct {
	repository.Repos
	Actor string
	Now   time.Time

	correlationID string
	events        []entity.ChangeEvent
	onCommit      []func()
}

// Record encola un evento de cambio; se emite solo si la transacción confirma.
func (t *Tx) Record(entityType, entityID, action string, before, after map[string]any) {
	ev := entity.NewChangeEvent(entityType, entityID, action, t.Actor, before, after, t.Now)
	ev.CorrelationID = t.correlationID
	t.events = append(t.events, ev)
}

// OnCommit registra fn para ejecutarse después de un commit exitoso.
func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// Runner abre la transacción, ejecuta el caso de uso y, tras el commit, emite los eventos
// pendientes. El emisor nunca participa de la transacción.
type Runner struct {
	tx      ports.TxRunner
	emitter ports.EventEmitter
	clock   ports.Clock
}

// NewRunner construye el runner. emitter y clock pueden ser nil.
func NewRunner(tx ports.TxRunner, emitter ports.EventEmitter, clock ports.Clock) *Runner {
	if emitter == nil {
		emitter = ports.NopEmitter{}
	}
	if clock == nil {
		clock = ports.SystemClock
	}
	return &Runner{tx: tx, emitter: emitter, clock: clock}
}

// Now hora actual según el reloj del runner.
func (r *Runner) Now() time.Time { return r.clock() }

// Do ejecuta fn en una transacción. Si fn falla no se emite nada.
func (r *Runner) Do(ctx context.Context, actor string, fn func(tx *Tx) error) error {
	var done *Tx
	err := r.tx.Run(ctx, func(repos repository.Repos) error {
		t := &Tx{Repos: repos, Actor: actor, Now: r.clock(), correlationID: uuid.NewString()}
		if err := fn(t); err != nil {
			return err
		}
		done = t
		return nil
	})
	if err != nil {
		return err
	}
	for _, ev := range done.events {
		r.emitter.Emit(ctx, ev)
	}
	for _, fn := range done.onCommit {
		fn()
	}
	return nil
}
