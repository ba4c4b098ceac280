package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo lee el último consecutivo de cada serie bajo un advisory lock de transacción.
type SequenceRepo struct {
	q Querier
}

func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// series tabla y columna donde vive cada numeración.
var series = map[repository.SequenceKind]struct{ table, column string }{
	repository.SequenceOrder:   {"sales_orders", "order_number"},
	repository.SequencePayment: {"payments", "voucher_number"},
	repository.SequenceReturn:  {"return_requests", "return_number"},
}

// LatestWithPrefix el advisory lock se libera con el commit o rollback, por eso solo tiene
// sentido dentro de TxRunner.Run. Cuenta filas eliminadas: un número nunca se reutiliza.
func (r *SequenceRepo) LatestWithPrefix(ctx context.Context, kind repository.SequenceKind, prefix string) (string, error) {
	s, ok := series[kind]
	if !ok {
		return "", fmt.Errorf("serie desconocida %q", kind)
	}
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(kind)+"|"+prefix); err != nil {
		return "", fmt.Errorf("lock sequence: %w", mapError(err))
	}
	var last string
	err := r.q.QueryRow(ctx, fmt.Sprintf(`
		SELECT %[2]s FROM %[1]s
		WHERE %[2]s LIKE $1 || '%%' ESCAPE '\'
		ORDER BY length(%[2]s) DESC, %[2]s DESC
		LIMIT 1`, s.table, s.column), escapeLike(prefix)).Scan(&last)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("latest %s: %w", kind, mapError(err))
	}
	return last, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutraliza los comodines de LIKE: el prefijo se compara literal.
func escapeLike(s string) string { return likeEscaper.Replace(s) }
