// Package alerts consultas de alerta sobre el inventario: stock bajo con sugerencia de
// reposición y lotes próximos a vencer.
package alerts

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
	"github.com/jhoicas/Distribuidora-api/internal/domain/entity"
	"github.com/jhoicas/Distribuidora-api/internal/domain/repository"
)

// DefaultExpiryDays horizonte de vencimiento si el llamador no indica uno.
const DefaultExpiryDays = 30

// idealFactor el stock ideal es 1.5 veces el umbral de alerta.
var idealFactor = decimal.NewFromFloat(1.5)

// LowStockItem producto en o bajo su umbral, con la cantidad sugerida para reponer.
type LowStockItem struct {
	ProductID     string
	SKU           string
	Name          string
	CurrentStock  int
	Threshold     int
	IdealStock    int
	SuggestedQty  int
	UnitCost      decimal.Decimal
	EstimatedCost decimal.Decimal
	Priority      int
}

// ExpiringBatch lote con stock que vence dentro del horizonte (o ya venció).
type ExpiringBatch struct {
	BatchID     string
	ProductID   string
	BatchNumber string
	Quantity    int
	ExpiryDate  time.Time
	DaysLeft    int
	Expired     bool
}

// Service casos de uso de alertas. Solo lectura.
type Service struct {
	products repository.ProductRepository
	batches  repository.BatchRepository
	clock    ports.Clock
}

func NewService(products repository.ProductRepository, batches repository.BatchRepository, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock
	}
	return &Service{products: products, batches: batches, clock: clock}
}

// LowStock productos activos con stock <= umbral. Prioridad 1 = mayor déficit frente al ideal.
func (s *Service) LowStock(ctx context.Context, limit, offset int) ([]LowStockItem, error) {
	if limit <= 0 {
		limit = 50
	}
	products, err := s.products.ListLowStock(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0, len(products))
	for _, p := range products {
		ideal := int(decimal.NewFromInt(int64(p.LowStockThreshold)).Mul(idealFactor).Ceil().IntPart())
		suggested := ideal - p.StockQuantity
		if suggested < 0 {
			suggested = 0
		}
		cost := decimal.Zero
		if p.CostPrice != nil {
			cost = *p.CostPrice
		}
		items = append(items, LowStockItem{
			ProductID:     p.ID,
			SKU:           p.SKU,
			Name:          p.Name,
			CurrentStock:  p.StockQuantity,
			Threshold:     p.LowStockThreshold,
			IdealStock:    ideal,
			SuggestedQty:  suggested,
			UnitCost:      cost,
			EstimatedCost: cost.Mul(decimal.NewFromInt(int64(suggested))),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SuggestedQty != items[j].SuggestedQty {
			return items[i].SuggestedQty > items[j].SuggestedQty
		}
		return items[i].SKU < items[j].SKU
	})
	for i := range items {
		items[i].Priority = offset + i + 1
	}
	return items, nil
}

// ExpiringBatches lotes con cantidad positiva que vencen dentro de days días, incluidos los vencidos.
func (s *Service) ExpiringBatches(ctx context.Context, days int) ([]ExpiringBatch, error) {
	if days <= 0 {
		days = DefaultExpiryDays
	}
	today := entity.TruncateDay(s.clock())
	batches, err := s.batches.ListExpiring(ctx, today.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	out := make([]ExpiringBatch, 0, len(batches))
	for _, b := range batches {
		if b.ExpiryDate == nil || b.Quantity <= 0 {
			continue
		}
		out = append(out, ExpiringBatch{
			BatchID:     b.ID,
			ProductID:   b.ProductID,
			BatchNumber: b.BatchNumber,
			Quantity:    b.Quantity,
			ExpiryDate:  *b.ExpiryDate,
			DaysLeft:    int(b.ExpiryDate.Sub(today).Hours() / 24),
			Expired:     b.IsExpired(today),
		})
	}
	return out, nil
}
