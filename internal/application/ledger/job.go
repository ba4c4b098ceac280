package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
)

const reconcileLockKey = "lock:reconcile"

// ReconcileJob ejecuta ReconcileAll periódicamente. El locker garantiza que solo una instancia
// corra la pasada; sin locker corre siempre.
type ReconcileJob struct {
	ledger      *Ledger
	locker      ports.JobLocker
	interval    time.Duration
	autocorrect bool
	log         zerolog.Logger
}

// NewReconcileJob construye el job. interval <= 0 usa una hora.
func NewReconcileJob(l *Ledger, locker ports.JobLocker, interval time.Duration, autocorrect bool, log zerolog.Logger) *ReconcileJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReconcileJob{ledger: l, locker: locker, interval: interval, autocorrect: autocorrect, log: log}
}

// Start corre el job hasta que ctx se cancele.
func (j *ReconcileJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	j.log.Info().Dur("interval", j.interval).Bool("autocorrect", j.autocorrect).Msg("job de conciliación iniciado")
	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("job de conciliación detenido")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.log.Error().Err(err).Msg("conciliación fallida")
			}
		}
	}
}

// RunOnce ejecuta una pasada. Si otra instancia tiene el lock devuelve un reporte vacío sin error.
func (j *ReconcileJob) RunOnce(ctx context.Context) (ReconcileReport, error) {
	if j.locker != nil {
		release, err := j.locker.Obtain(ctx, reconcileLockKey, j.interval)
		if errors.Is(err, ports.ErrLockNotObtained) {
			j.log.Debug().Msg("conciliación en curso en otra instancia, se omite")
			return ReconcileReport{}, nil
		}
		if err != nil {
			return ReconcileReport{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				j.log.Warn().Err(err).Msg("no se pudo liberar el lock de conciliación")
			}
		}()
	}

	start := time.Now()
	report, err := j.ledger.ReconcileAll(ctx, j.autocorrect)
	if err != nil {
		return report, err
	}
	for _, m := range report.Mismatches {
		j.log.Error().
			Str("product_id", m.ProductID).
			Int("cached", m.Cached).
			Int("ledger_sum", m.LedgerSum).
			Int("drift", m.Drift).
			Bool("corrected", m.Corrected).
			Msg("inconsistencia en libro de stock")
	}
	j.log.Info().
		Int("checked", report.Checked).
		Int("mismatches", len(report.Mismatches)).
		Dur("took", time.Since(start)).
		Msg("conciliación completada")
	return report, nil
}
