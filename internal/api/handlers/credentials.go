// credentials.go — обработчики /api/v1/credentials endpoints.
// Выпуск, выдача, верификация сертификатов и QR-коды.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/ArokiaMartinN/agriqcert/internal/api/errors"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
	"github.com/ArokiaMartinN/agriqcert/internal/vc"
)

// maxVerifyBodyBytes — предел размера предъявляемого документа сертификата.
const maxVerifyBodyBytes = 64 * 1024

// generateCredentialRequest — тело запроса выпуска сертификата.
type generateCredentialRequest struct {
	InspectionID string `json:"inspectionId"`
}

// credentialResponse — ответ выпуска сертификата.
type credentialResponse struct {
	ID             string     `json:"id"`
	Issuer         string     `json:"issuer"`
	IssuanceDate   string     `json:"issuanceDate"`
	ExpirationDate string     `json:"expirationDate"`
	Credential     vc.Payload `json:"credential"`
}

// storedCredentialResponse — ответ выдачи сохранённого сертификата.
type storedCredentialResponse struct {
	ID           string     `json:"id"`
	InspectionID string     `json:"inspectionId"`
	IssuerID     string     `json:"issuerId"`
	Status       string     `json:"status"`
	CreatedAt    string     `json:"createdAt"`
	Credential   vc.Payload `json:"credential"`
}

// verificationResponse — результат верификации сертификата.
// Поля issuer/issuanceDate/expirationDate/batchId заполняются только
// при успешной верификации.
type verificationResponse struct {
	IsValid        bool        `json:"isValid"`
	Reason         string      `json:"reason"`
	Message        string      `json:"message"`
	Issuer         string      `json:"issuer,omitempty"`
	IssuanceDate   string      `json:"issuanceDate,omitempty"`
	ExpirationDate string      `json:"expirationDate,omitempty"`
	BatchID        string      `json:"batchId,omitempty"`
	Credential     *vc.Payload `json:"credential,omitempty"`
}

// qrCodeResponse — ответ генерации QR-кода.
type qrCodeResponse struct {
	QRCode       string `json:"qrCode"`
	CredentialID string `json:"credentialId"`
	VerifyURL    string `json:"verifyUrl"`
}

// GenerateCredential — POST /api/v1/credentials/generate.
// Выпускает сертификат по завершённой инспекции. Доступ: qa_agency, admin.
func (h *APIHandler) GenerateCredential(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req generateCredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InspectionID == "" {
		apierrors.ValidationError(w, "inspectionId обязателен")
		return
	}

	result, err := h.credentials.Issue(r.Context(), actor, req.InspectionID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка выпуска сертификата")
		return
	}

	writeJSON(w, http.StatusCreated, credentialResponse{
		ID:             result.ID,
		Issuer:         result.Issuer,
		IssuanceDate:   result.IssuanceDate,
		ExpirationDate: result.ExpirationDate,
		Credential:     result.Payload,
	})
}

// GetCredential — GET /api/v1/credentials/{id}.
// Возвращает сохранённый сертификат с разобранным payload.
func (h *APIHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	cred, payload, err := h.credentials.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения сертификата")
		return
	}

	writeJSON(w, http.StatusOK, storedCredentialResponse{
		ID:           cred.ID,
		InspectionID: cred.InspectionID,
		IssuerID:     cred.IssuerID,
		Status:       cred.Status,
		CreatedAt:    cred.CreatedAt.UTC().Format(time.RFC3339),
		Credential:   payload,
	})
}

// VerifyCredential — GET /api/v1/credentials/verify/{id}.
// Публичная верификация сертификата по id. Тело всегда содержит isValid
// и код причины; статус отражает исход: 200 — действителен,
// 404 — сертификат не найден, 400 — остальные отказы.
func (h *APIHandler) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	result, err := h.credentials.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка верификации сертификата")
		return
	}

	writeJSON(w, verificationStatus(result), mapVerification(result))
}

// VerifyCredentialDocument — POST /api/v1/credentials/verify.
// Публичная верификация. Тело {credentialId} — верификация сохранённого
// сертификата, как GET /verify/{id}. Иначе тело трактуется как документ
// сертификата целиком и проверяется офлайн: срок действия + integrity stamp.
func (h *APIHandler) VerifyCredentialDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxVerifyBodyBytes))
	if err != nil {
		apierrors.ValidationError(w, "Не удалось прочитать тело запроса")
		return
	}
	if len(data) == 0 {
		apierrors.ValidationError(w, "Пустое тело запроса: ожидается credentialId или документ сертификата")
		return
	}

	var ref struct {
		CredentialID string `json:"credentialId"`
	}
	if err := json.Unmarshal(data, &ref); err == nil && ref.CredentialID != "" {
		result, err := h.credentials.Verify(r.Context(), ref.CredentialID)
		if err != nil {
			h.writeServiceError(w, err, "Ошибка верификации сертификата")
			return
		}
		writeJSON(w, verificationStatus(result), mapVerification(result))
		return
	}

	result := h.credentials.VerifyDocument(data)
	writeJSON(w, verificationStatus(result), mapVerification(result))
}

// GetCredentialQRCode — GET /api/v1/credentials/{id}/qrcode.
// Возвращает PNG QR-код (data URL) со ссылкой на verify-страницу.
func (h *APIHandler) GetCredentialQRCode(w http.ResponseWriter, r *http.Request) {
	dataURL, verifyURL, err := h.credentials.QRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка генерации QR-кода")
		return
	}

	writeJSON(w, http.StatusOK, qrCodeResponse{
		QRCode:       dataURL,
		CredentialID: chi.URLParam(r, "id"),
		VerifyURL:    verifyURL,
	})
}

// verificationStatus выбирает HTTP-статус по результату верификации:
// 200 — действителен, 404 — сертификат не найден, 400 — остальные отказы.
func verificationStatus(r *service.VerificationResult) int {
	switch {
	case r.IsValid:
		return http.StatusOK
	case r.Reason == service.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// mapVerification конвертирует результат верификации в API-представление.
func mapVerification(r *service.VerificationResult) verificationResponse {
	resp := verificationResponse{
		IsValid:    r.IsValid,
		Reason:     r.Reason,
		Message:    verificationMessage(r.Reason),
		Credential: r.Payload,
	}
	if r.IsValid && r.Payload != nil {
		resp.Issuer = r.Payload.Issuer
		resp.IssuanceDate = r.Payload.IssuanceDate
		resp.ExpirationDate = r.Payload.ExpirationDate
		resp.BatchID = r.Payload.CredentialSubject.BatchID
	}
	return resp
}

// verificationMessage — человекочитаемое описание кода причины.
func verificationMessage(reason string) string {
	switch reason {
	case service.ReasonValid:
		return "Сертификат действителен, целостность подтверждена"
	case service.ReasonNotFound:
		return "Сертификат не найден"
	case service.ReasonNotIssued:
		return "Сертификат не находится в статусе issued"
	case service.ReasonInspectionNotCompleted:
		return "Инспекция по сертификату не завершена"
	case service.ReasonBatchNotCertified:
		return "Партия не сертифицирована"
	case service.ReasonExpired:
		return "Срок действия сертификата истёк"
	case service.ReasonIntegrityFailure:
		return "Проверка целостности не пройдена: содержимое сертификата изменено"
	case service.ReasonMalformed:
		return "Документ сертификата имеет некорректный формат"
	default:
		return ""
	}
}
