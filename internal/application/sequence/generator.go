// Package sequence genera identificadores legibles PREFIJO-AAAAMMDD-NNNN con alcance diario.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// Prefixes prefijos configurados por serie.
type Prefixes struct {
	Order   string
	Payment string
	Return  string
}

// DefaultPrefixes ORD, PV y RET.
var DefaultPrefixes = Prefixes{Order: "ORD", Payment: "PV", Return: "RET"}

// Generator asigna el siguiente consecutivo del día. Debe llamarse dentro de la transacción
// que inserta el documento: el lock de la serie se mantiene hasta el commit.
type Generator struct {
	prefixes Prefixes
}

// NewGenerator construye el generador; prefijos vacíos toman el valor por defecto.
func NewGenerator(p Prefixes) *Generator {
	if p.Order == "" {
		p.Order = DefaultPrefixes.Order
	}
	if p.Payment == "" {
		p.Payment = DefaultPrefixes.Payment
	}
	if p.Return == "" {
		p.Return = DefaultPrefixes.Return
	}
	return &Generator{prefixes: p}
}

func (g *Generator) prefix(kind repository.SequenceKind) (string, error) {
	switch kind {
	case repository.SequenceOrder:
		return g.prefixes.Order, nil
	case repository.SequencePayment:
		return g.prefixes.Payment, nil
	case repository.SequenceReturn:
		return g.prefixes.Return, nil
	}
	return "", fmt.Errorf("serie %q: %w", kind, domain.ErrInvalidInput)
}

// Next devuelve el siguiente número de la serie para el día de now. Los registros eliminados
// cuentan: un número nunca se reutiliza. Si no hay número previo en el día, empieza en 1.
func (g *Generator) Next(ctx context.Context, seq repository.SequenceRepository, kind repository.SequenceKind, now time.Time) (string, error) {
	prefix, err := g.prefix(kind)
	if err != nil {
		return "", err
	}
	dayPrefix := fmt.Sprintf("%s-%s-", prefix, now.Format("20060102"))
	latest, err := seq.LatestWithPrefix(ctx, kind, dayPrefix)
	if err != nil {
		return "", fmt.Errorf("consecutivo %s: %w", kind, err)
	}
	n, err := parseSeq(dayPrefix, latest)
	if err != nil {
		return "", fmt.Errorf("consecutivo %s: %w", kind, err)
	}
	return fmt.Sprintf("%s%04d", dayPrefix, n+1), nil
}

// parseSeq extrae NNNN de number. Un número existente ilegible es un error: reiniciar
// en 0001 chocaría con números ya asignados.
func parseSeq(dayPrefix, number string) (int, error) {
	if number == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(number, dayPrefix))
	if err != nil || n < 0 || !strings.HasPrefix(number, dayPrefix) {
		return 0, fmt.Errorf("número existente %q mal formado", number)
	}
	return n, nil
}
