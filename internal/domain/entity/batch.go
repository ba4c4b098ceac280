package entity

import "time"

// Batch es una partición con número de lote y fecha de vencimiento del stock de un producto.
type Batch struct {
	ID          string
	ProductID   string
	BatchNumber string
	Quantity    int
	ExpiryDate  *time.Time
	ReceivedAt  *time.Time
	Notes       string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// IsExpired indica si el lote venció antes del día de now.
func (b *Batch) IsExpired(now time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(TruncateDay(now))
}

// IsExpiringSoon indica si el lote vence dentro de los próximos days días.
func (b *Batch) IsExpiringSoon(now time.Time, days int) bool {
	if b.ExpiryDate == nil || b.IsExpired(now) {
		return false
	}
	return !b.ExpiryDate.After(TruncateDay(now).AddDate(0, 0, days))
}

// EarliestFutureExpiry devuelve la fecha de vencimiento más próxima (hoy inclusive) entre
// los lotes con cantidad positiva, o nil si ninguno aplica.
func EarliestFutureExpiry(batches []*Batch, now time.Time) *time.Time {
	today := TruncateDay(now)
	var earliest *time.Time
	for _, b := range batches {
		if b.Quantity <= 0 || b.ExpiryDate == nil || b.DeletedAt != nil {
			continue
		}
		if b.ExpiryDate.Before(today) {
			continue
		}
		if earliest == nil || b.ExpiryDate.Before(*earliest) {
			d := *b.ExpiryDate
			earliest = &d
		}
	}
	return earliest
}

func (b *Batch) Snapshot() map[string]any {
	snap := map[string]any{
		"id":           b.ID,
		"product_id":   b.ProductID,
		"batch_number": b.BatchNumber,
		"quantity":     b.Quantity,
	}
	if b.ExpiryDate != nil {
		snap["expiry_date"] = b.ExpiryDate.Format(DateLayout)
	}
	return snap
}

// TruncateDay devuelve la medianoche UTC del día calendario de t (las columnas DATE se leen en UTC).
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
