// Пакет model — доменные модели AgriQCert.
package model

import "time"

// User — зарегистрированный пользователь системы.
// Хранится в таблице users.
type User struct {
	// ID — UUID записи
	ID string
	// Name — имя пользователя (ФИО или название организации)
	Name string
	// Email — адрес электронной почты (уникальный, используется для входа)
	Email string
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string
	// Role — роль (exporter, qa_agency, importer, admin)
	Role string
	// Organization — организация пользователя
	Organization string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
