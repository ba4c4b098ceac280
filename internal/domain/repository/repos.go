package repository

// Repos agrupa los repositorios atados a una misma transacción (o al pool fuera de ella).
type Repos struct {
	Products  ProductRepository
	Batches   BatchRepository
	Movements StockMovementRepository
	Orders    SalesOrderRepository
	Payments  PaymentRepository
	Purchases PurchaseOrderRepository
	Returns   ReturnRepository
	Sequences SequenceRepository
}
