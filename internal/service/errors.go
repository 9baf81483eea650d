// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrAuth — ошибка аутентификации (неверные учётные данные, чужой issuer).
	ErrAuth = errors.New("ошибка аутентификации")
	// ErrForbidden — роль не даёт права на операцию.
	ErrForbidden = errors.New("операция запрещена для данной роли")
	// ErrPrecondition — состояние ресурса не допускает операцию.
	ErrPrecondition = errors.New("состояние ресурса не допускает операцию")
	// ErrExpired — срок действия сертификата истёк.
	ErrExpired = errors.New("срок действия сертификата истёк")
	// ErrIntegrity — integrity stamp сертификата не сходится.
	ErrIntegrity = errors.New("integrity stamp не сходится")
)

// ConflictError — попытка повторного выпуска сертификата по инспекции.
// Несёт id уже существующего сертификата, чтобы клиент мог его получить.
type ConflictError struct {
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("сертификат по инспекции уже выпущен: %s", e.ExistingID)
}
