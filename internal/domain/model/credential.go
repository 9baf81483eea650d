package model

import "time"

// CredentialStatusIssued — единственный статус сертификата.
// Отзыв (revocation) в системе не моделируется.
const CredentialStatusIssued = "issued"

// Credential — выпущенный сертификат качества.
// Ссылается на завершённую инспекцию (не более одного сертификата на
// инспекцию — уникальный индекс на inspection_id). Неизменяем после
// создания: операций обновления не существует.
type Credential struct {
	// ID — UUID записи
	ID string
	// InspectionID — UUID инспекции-основания (уникальный)
	InspectionID string
	// IssuerID — UUID выпустившего пользователя (qa_agency или admin)
	IssuerID string
	// Payload — сериализованный claim payload с proof-блоком (JSON)
	Payload []byte
	// Status — статус сертификата (issued)
	Status string
	// CreatedAt — время выпуска
	CreatedAt time.Time
}

// CredentialContext — сертификат вместе со статусами связанных записей.
// Результат JOIN credentials → inspections → batches, используется
// верификатором для проверки статусных ворот.
type CredentialContext struct {
	Credential
	// InspectionStatus — текущий статус инспекции-основания
	InspectionStatus string
	// BatchID — UUID партии
	BatchID string
	// BatchStatus — текущий статус партии
	BatchStatus string
}
