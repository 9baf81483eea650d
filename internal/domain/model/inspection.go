package model

import "time"

// Статусы инспекции: scheduled → in_progress → completed.
// Завершение напрямую из scheduled допустимо (инспектор может внести
// результаты и завершить одним действием).
const (
	InspectionStatusScheduled  = "scheduled"
	InspectionStatusInProgress = "in_progress"
	InspectionStatusCompleted  = "completed"
)

// Inspection — инспекция качества партии, проводимая QA-агентством.
// Хранится в таблице inspections.
type Inspection struct {
	// ID — UUID записи
	ID string
	// BatchID — UUID инспектируемой партии
	BatchID string
	// QAAgencyID — UUID назначенного QA-агентства
	QAAgencyID string
	// ScheduledDate — запланированная дата инспекции
	ScheduledDate time.Time
	// Status — текущий статус инспекции
	Status string
	// MoistureLevel — уровень влажности, % (nil до внесения результатов)
	MoistureLevel *float64
	// PesticideContent — содержание пестицидов, ppm (nil до внесения результатов)
	PesticideContent *float64
	// OrganicStatus — органический статус продукции (nil до внесения результатов)
	OrganicStatus *bool
	// ISOCodes — перечень применимых ISO-стандартов
	ISOCodes []string
	// Notes — примечания инспектора (может быть nil)
	Notes *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// CompletedAt — время завершения инспекции (nil пока не завершена)
	CompletedAt *time.Time
}
