package model

import "time"

// Статусы партии. Порядок соответствует жизненному циклу:
// submitted → inspection_pending → inspection_completed → certified.
// rejected — терминальный статус, достижим из любого несертифицированного.
const (
	BatchStatusSubmitted           = "submitted"
	BatchStatusInspectionPending   = "inspection_pending"
	BatchStatusInspectionCompleted = "inspection_completed"
	BatchStatusCertified           = "certified"
	BatchStatusRejected            = "rejected"
)

// Batch — экспортная партия, поданная экспортёром на сертификацию.
// Хранится в таблице batches.
type Batch struct {
	// ID — UUID записи
	ID string
	// ProductType — тип продукции (Rice, Wheat, ...)
	ProductType string
	// Quantity — количество (строго положительное)
	Quantity float64
	// Unit — единица измерения (kg по умолчанию)
	Unit string
	// Location — место происхождения
	Location string
	// Destination — страна/регион назначения
	Destination string
	// ExporterID — UUID экспортёра-владельца
	ExporterID string
	// Status — текущий статус жизненного цикла
	Status string
	// Notes — произвольные примечания (может быть nil)
	Notes *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
