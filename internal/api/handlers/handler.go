// handler.go — основной обработчик REST API AgriQCert.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/ArokiaMartinN/agriqcert/internal/api/errors"
	"github.com/ArokiaMartinN/agriqcert/internal/api/middleware"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
)

// APIHandler — основной обработчик API AgriQCert.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health      *HealthHandler
	auth        *service.AuthService
	batches     *service.BatchService
	inspections *service.InspectionService
	credentials *service.CredentialService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	batches *service.BatchService,
	inspections *service.InspectionService,
	credentials *service.CredentialService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		auth:        auth,
		batches:     batches,
		inspections: inspections,
		credentials: credentials,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса в dst. При ошибке пишет 400
// и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// actorFromRequest извлекает Actor из claims в контексте запроса.
// При отсутствии claims пишет 401 и возвращает false.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims")
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.Subject, Role: claims.Role}, true
}

// paginationParams извлекает limit и offset из query-параметров.
// Некорректные значения нормализуются в сервисном слое.
func paginationParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		offset, _ = strconv.Atoi(v)
	}
	return limit, offset
}

// optionalQuery возвращает указатель на значение query-параметра
// или nil, если параметр отсутствует.
func optionalQuery(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Неопознанные ошибки логируются и отдаются как 500 с generic-сообщением.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		apierrors.Conflict(w, "Сертификат по этой инспекции уже выпущен", conflict.ExistingID)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrAuth):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrPrecondition):
		apierrors.PreconditionFailed(w, err.Error())
	default:
		h.logger.Error(logMsg, slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
