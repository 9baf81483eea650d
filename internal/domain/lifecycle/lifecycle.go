// Пакет lifecycle — конечный автомат жизненного цикла партии и инспекции.
//
// Партия: submitted → inspection_pending → inspection_completed → certified.
// rejected — терминальный статус, достижим из любого несертифицированного
// (текущими операциями не используется, но представим).
// Инспекция: scheduled → in_progress → completed; переход
// scheduled → completed разрешён (результаты и завершение одним действием).
//
// Переходы необратимы: операций отката автомат не предоставляет.
// Статусы хранятся в БД; автомат — чистые функции без состояния.
package lifecycle

import (
	"fmt"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
)

// batchTransitions — матрица допустимых переходов статуса партии.
// Ключ — текущий статус, значение — набор допустимых целевых статусов.
var batchTransitions = map[string]map[string]bool{
	model.BatchStatusSubmitted: {
		model.BatchStatusInspectionPending: true,
		model.BatchStatusRejected:          true,
	},
	model.BatchStatusInspectionPending: {
		model.BatchStatusInspectionCompleted: true,
		model.BatchStatusRejected:            true,
	},
	model.BatchStatusInspectionCompleted: {
		model.BatchStatusCertified: true,
		model.BatchStatusRejected:  true,
	},
	model.BatchStatusCertified: {}, // Конечный статус
	model.BatchStatusRejected:  {}, // Терминальный статус
}

// inspectionTransitions — матрица допустимых переходов статуса инспекции.
var inspectionTransitions = map[string]map[string]bool{
	model.InspectionStatusScheduled: {
		model.InspectionStatusInProgress: true,
		model.InspectionStatusCompleted:  true,
	},
	model.InspectionStatusInProgress: {
		model.InspectionStatusInProgress: true, // повторное внесение результатов
		model.InspectionStatusCompleted:  true,
	},
	model.InspectionStatusCompleted: {}, // Конечный статус
}

// TransitionError — ошибка недопустимого перехода статуса.
type TransitionError struct {
	// Entity — вид записи (batch, inspection)
	Entity string
	// From — текущий статус
	From string
	// To — целевой статус
	To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("переход %s %s → %s недопустим", e.Entity, e.From, e.To)
}

// CheckBatchTransition проверяет допустимость перехода статуса партии.
// Возвращает *TransitionError для недопустимого перехода.
func CheckBatchTransition(from, to string) error {
	transitions, ok := batchTransitions[from]
	if !ok || !transitions[to] {
		return &TransitionError{Entity: "batch", From: from, To: to}
	}
	return nil
}

// CheckInspectionTransition проверяет допустимость перехода статуса инспекции.
func CheckInspectionTransition(from, to string) error {
	transitions, ok := inspectionTransitions[from]
	if !ok || !transitions[to] {
		return &TransitionError{Entity: "inspection", From: from, To: to}
	}
	return nil
}

// IsValidBatchStatus проверяет, является ли строка допустимым статусом партии.
func IsValidBatchStatus(s string) bool {
	_, ok := batchTransitions[s]
	return ok
}

// IsValidInspectionStatus проверяет, является ли строка допустимым статусом инспекции.
func IsValidInspectionStatus(s string) bool {
	_, ok := inspectionTransitions[s]
	return ok
}
