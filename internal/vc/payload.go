// Пакет vc — claim payload сертификата качества и его integrity stamp.
//
// Payload сериализуется в JSON со стабильным порядком полей: encoding/json
// выводит поля структуры в порядке объявления, что фиксирует wire-контракт
// и делает хэш воспроизводимым при повторной сериализации.
//
// Stamp = hex(sha256(каноничный JSON без proof-блока || секрет)).
// Это симметричная схема на общем секрете, НЕ криптографическая подпись:
// любой владелец секрета может как проверить, так и подделать stamp.
package vc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ProofType — тип proof-блока.
const ProofType = "DataIntegrityProof"

// ProofPurpose — назначение proof-блока.
const ProofPurpose = "assertionMethod"

// Subject — предметный блок сертификата (credentialSubject).
// Снимок данных партии и инспекции на момент выпуска, не живая ссылка.
// Порядок полей менять нельзя — он зафиксирован в wire-контракте.
type Subject struct {
	ProductType      string   `json:"productType"`
	Quantity         float64  `json:"quantity"`
	Location         string   `json:"location"`
	Destination      string   `json:"destination"`
	MoistureLevel    *float64 `json:"moistureLevel"`
	PesticideContent *float64 `json:"pesticideContent"`
	OrganicStatus    *bool    `json:"organicStatus"`
	ISOCodes         []string `json:"isoCodes"`
	BatchID          string   `json:"batchId"`
	InspectionID     string   `json:"inspectionId"`
}

// Proof — integrity-блок, встраиваемый в payload перед сохранением.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	ProofValue         string `json:"proofValue"`
}

// Payload — claim payload сертификата в формате W3C Verifiable Credential.
// Порядок полей менять нельзя — он зафиксирован в wire-контракте.
type Payload struct {
	Context           []string `json:"@context"`
	Type              []string `json:"type"`
	Issuer            string   `json:"issuer"`
	IssuanceDate      string   `json:"issuanceDate"`
	ExpirationDate    string   `json:"expirationDate"`
	CredentialSubject Subject  `json:"credentialSubject"`
	Proof             *Proof   `json:"proof,omitempty"`
}

// IssuerDID возвращает текстовый идентификатор издателя.
// Детерминированно выводится из UUID пользователя; настоящим DID не является.
func IssuerDID(issuerID string) string {
	return "did:agriqcert:issuer-" + issuerID
}

// New строит payload без proof-блока.
// issuedAt обрезается до секунд UTC — RFC3339 без долей секунды,
// иначе хэш не воспроизведётся после round-trip через JSON.
func New(issuerID string, issuedAt time.Time, ttl time.Duration, subject Subject) Payload {
	issued := issuedAt.UTC().Truncate(time.Second)
	expires := issued.Add(ttl)

	return Payload{
		Context: []string{
			"https://www.w3.org/2018/credentials/v1",
			"https://www.w3.org/2018/credentials/examples/v1",
		},
		Type:              []string{"VerifiableCredential", "AgriculturalProductCredential"},
		Issuer:            IssuerDID(issuerID),
		IssuanceDate:      issued.Format(time.RFC3339),
		ExpirationDate:    expires.Format(time.RFC3339),
		CredentialSubject: subject,
	}
}

// Stamp вычисляет integrity stamp payload БЕЗ proof-блока.
func Stamp(p Payload, secret string) (string, error) {
	p.Proof = nil

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации payload: %w", err)
	}

	sum := sha256.Sum256(append(data, []byte(secret)...))
	return hex.EncodeToString(sum[:]), nil
}

// Seal вычисляет stamp и встраивает proof-блок в payload.
func Seal(p *Payload, secret string) error {
	stamp, err := Stamp(*p, secret)
	if err != nil {
		return err
	}

	p.Proof = &Proof{
		Type:               ProofType,
		Created:            p.IssuanceDate,
		ProofPurpose:       ProofPurpose,
		VerificationMethod: p.Issuer + "#key-1",
		ProofValue:         stamp,
	}
	return nil
}

// VerifyStamp повторно выводит ожидаемый stamp из payload (без proof)
// и сравнивает с сохранённым proofValue.
// Возвращает false при отсутствии proof-блока или несовпадении.
func VerifyStamp(p Payload, secret string) (bool, error) {
	if p.Proof == nil || p.Proof.ProofValue == "" {
		return false, nil
	}

	expected, err := Stamp(p, secret)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(p.Proof.ProofValue)) == 1, nil
}

// Parse разбирает сохранённый payload.
func Parse(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("ошибка разбора payload: %w", err)
	}
	return p, nil
}

// Marshal сериализует payload для сохранения.
func Marshal(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации payload: %w", err)
	}
	return data, nil
}

// IsExpired проверяет истечение срока действия на момент now.
// Граница включается: expirationDate == now считается истёкшим.
// Нечитаемая дата тоже считается истечением — payload повреждён.
func IsExpired(p Payload, now time.Time) bool {
	exp, err := time.Parse(time.RFC3339, p.ExpirationDate)
	if err != nil {
		return true
	}
	return !exp.After(now)
}
