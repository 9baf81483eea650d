package vc

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

const testSecret = "vc-signing-secret"

func testSubject() Subject {
	moisture := 12.5
	pesticide := 0.03
	organic := true
	return Subject{
		ProductType:      "Rice",
		Quantity:         1000,
		Location:         "Punjab",
		Destination:      "UAE",
		MoistureLevel:    &moisture,
		PesticideContent: &pesticide,
		OrganicStatus:    &organic,
		ISOCodes:         []string{"ISO 22000", "ISO 9001"},
		BatchID:          "5f1c3f4e-0000-0000-0000-000000000001",
		InspectionID:     "5f1c3f4e-0000-0000-0000-000000000002",
	}
}

func sealedPayload(t *testing.T) Payload {
	t.Helper()
	p := New("issuer-uuid-1", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), 180*24*time.Hour, testSubject())
	if err := Seal(&p, testSecret); err != nil {
		t.Fatalf("Seal() ошибка: %v", err)
	}
	return p
}

func TestSealThenVerify(t *testing.T) {
	p := sealedPayload(t)

	if p.Proof == nil {
		t.Fatal("Seal() не встроил proof-блок")
	}
	if p.Proof.Type != ProofType {
		t.Errorf("Proof.Type = %q, ожидается %q", p.Proof.Type, ProofType)
	}
	if p.Proof.VerificationMethod != p.Issuer+"#key-1" {
		t.Errorf("VerificationMethod = %q, не совпадает с issuer", p.Proof.VerificationMethod)
	}
	if len(p.Proof.ProofValue) != 64 {
		t.Errorf("ProofValue длиной %d, ожидается 64 hex-символа", len(p.Proof.ProofValue))
	}

	ok, err := VerifyStamp(p, testSecret)
	if err != nil {
		t.Fatalf("VerifyStamp() ошибка: %v", err)
	}
	if !ok {
		t.Error("VerifyStamp() = false сразу после Seal()")
	}
}

// Хэш должен воспроизводиться после сериализации и обратного разбора —
// именно так payload проходит через БД между выпуском и проверкой.
func TestVerifyAfterRoundTrip(t *testing.T) {
	p := sealedPayload(t)

	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() ошибка: %v", err)
	}

	restored, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() ошибка: %v", err)
	}

	ok, err := VerifyStamp(restored, testSecret)
	if err != nil {
		t.Fatalf("VerifyStamp() ошибка: %v", err)
	}
	if !ok {
		t.Error("VerifyStamp() = false после round-trip через JSON")
	}
}

// Изменение любого поля предметного блока должно детерминированно ломать stamp.
func TestTamperDetection(t *testing.T) {
	p := sealedPayload(t)
	data, _ := Marshal(p)

	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"количество", `"quantity":1000`, `"quantity":9000`},
		{"тип продукции", `"productType":"Rice"`, `"productType":"Wheat"`},
		{"назначение", `"destination":"UAE"`, `"destination":"USA"`},
		{"органический статус", `"organicStatus":true`, `"organicStatus":false`},
		{"срок действия", p.ExpirationDate, "2099-01-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := strings.Replace(string(data), tt.old, tt.new, 1)
			if tampered == string(data) {
				t.Fatalf("подмена %q не изменила payload", tt.old)
			}

			parsed, err := Parse([]byte(tampered))
			if err != nil {
				t.Fatalf("Parse() ошибка: %v", err)
			}

			ok, err := VerifyStamp(parsed, testSecret)
			if err != nil {
				t.Fatalf("VerifyStamp() ошибка: %v", err)
			}
			if ok {
				t.Error("VerifyStamp() = true для изменённого payload")
			}
		})
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	p := sealedPayload(t)

	ok, err := VerifyStamp(p, "другой-секрет")
	if err != nil {
		t.Fatalf("VerifyStamp() ошибка: %v", err)
	}
	if ok {
		t.Error("VerifyStamp() = true с неверным секретом")
	}
}

func TestVerifyWithoutProof(t *testing.T) {
	p := New("issuer-uuid-1", time.Now(), time.Hour, testSubject())

	ok, err := VerifyStamp(p, testSecret)
	if err != nil {
		t.Fatalf("VerifyStamp() ошибка: %v", err)
	}
	if ok {
		t.Error("VerifyStamp() = true без proof-блока")
	}
}

func TestIsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New("issuer-uuid-1", issued, 24*time.Hour, testSubject())
	expires := issued.Add(24 * time.Hour)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"до истечения", expires.Add(-time.Minute), false},
		{"ровно в момент истечения", expires, true},
		{"после истечения", expires.Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(p, tt.now); got != tt.expired {
				t.Errorf("IsExpired(now=%v) = %v, ожидается %v", tt.now, got, tt.expired)
			}
		})
	}

	// Повреждённая дата считается истечением
	broken := p
	broken.ExpirationDate = "не-дата"
	if !IsExpired(broken, time.Now()) {
		t.Error("IsExpired() = false для нечитаемой даты")
	}
}

// Порядок ключей сериализации — wire-контракт: внешние верификаторы
// зависят от него для воспроизводимости хэша.
func TestCanonicalFieldOrder(t *testing.T) {
	p := sealedPayload(t)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() ошибка: %v", err)
	}

	keys := []string{
		`"@context"`, `"type"`, `"issuer"`, `"issuanceDate"`, `"expirationDate"`,
		`"credentialSubject"`, `"productType"`, `"quantity"`, `"location"`,
		`"destination"`, `"moistureLevel"`, `"pesticideContent"`, `"organicStatus"`,
		`"isoCodes"`, `"batchId"`, `"inspectionId"`,
		`"proof"`, `"created"`, `"proofPurpose"`, `"verificationMethod"`, `"proofValue"`,
	}

	s := string(data)
	pos := -1
	for _, k := range keys {
		idx := strings.Index(s, k)
		if idx < 0 {
			t.Fatalf("ключ %s отсутствует в сериализации", k)
		}
		if idx < pos {
			t.Errorf("ключ %s стоит раньше ожидаемой позиции — порядок полей нарушен", k)
		}
		pos = idx
	}
}
