// batches.go — обработчики /api/v1/batches endpoints.
// Подача, список, CRUD, отклонение партий.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
)

// batchResponse — API-представление партии.
type batchResponse struct {
	ID          string  `json:"id"`
	ProductType string  `json:"productType"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Location    string  `json:"location"`
	Destination string  `json:"destination"`
	ExporterID  string  `json:"exporterId"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// batchListResponse — ответ списка партий.
type batchListResponse struct {
	Items  []batchResponse `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// submitBatchRequest — тело запроса подачи партии.
type submitBatchRequest struct {
	ProductType string  `json:"productType"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Location    string  `json:"location"`
	Destination string  `json:"destination"`
	Notes       *string `json:"notes"`
}

// updateBatchRequest — тело запроса обновления партии.
// Отсутствующие поля не изменяются.
type updateBatchRequest struct {
	ProductType *string  `json:"productType"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	Location    *string  `json:"location"`
	Destination *string  `json:"destination"`
	Notes       *string  `json:"notes"`
}

// SubmitBatch — POST /api/v1/batches.
// Подаёт партию на сертификацию. Доступ: exporter, admin.
func (h *APIHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req submitBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	batch, err := h.batches.Submit(r.Context(), actor, service.SubmitBatchInput{
		ProductType: req.ProductType,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Location:    req.Location,
		Destination: req.Destination,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка подачи партии")
		return
	}

	writeJSON(w, http.StatusCreated, mapBatch(batch))
}

// ListBatches — GET /api/v1/batches.
// Список партий с фильтрами status и exporterId.
// Экспортёр видит только собственные партии.
func (h *APIHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)
	status := optionalQuery(r, "status")
	exporterID := optionalQuery(r, "exporterId")

	batches, err := h.batches.List(r.Context(), actor, status, exporterID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка партий")
		return
	}

	items := make([]batchResponse, len(batches))
	for i, b := range batches {
		items[i] = mapBatch(b)
	}

	writeJSON(w, http.StatusOK, batchListResponse{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}

// GetBatch — GET /api/v1/batches/{id}.
func (h *APIHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.batches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения партии")
		return
	}

	writeJSON(w, http.StatusOK, mapBatch(batch))
}

// UpdateBatch — PUT /api/v1/batches/{id}.
// Обновляет партию. Доступ: владелец, admin.
func (h *APIHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req updateBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	batch, err := h.batches.Update(r.Context(), actor, chi.URLParam(r, "id"), service.UpdateBatchInput{
		ProductType: req.ProductType,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Location:    req.Location,
		Destination: req.Destination,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка обновления партии")
		return
	}

	writeJSON(w, http.StatusOK, mapBatch(batch))
}

// RejectBatch — POST /api/v1/batches/{id}/reject.
// Переводит партию в терминальный статус rejected. Доступ: qa_agency, admin.
func (h *APIHandler) RejectBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	batch, err := h.batches.Reject(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка отклонения партии")
		return
	}

	writeJSON(w, http.StatusOK, mapBatch(batch))
}

// DeleteBatch — DELETE /api/v1/batches/{id}.
// Удаляет партию с каскадом инспекций и сертификатов. Доступ: владелец, admin.
func (h *APIHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.batches.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления партии")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Партия удалена"})
}

// mapBatch конвертирует domain model в API-представление.
func mapBatch(b *model.Batch) batchResponse {
	return batchResponse{
		ID:          b.ID,
		ProductType: b.ProductType,
		Quantity:    b.Quantity,
		Unit:        b.Unit,
		Location:    b.Location,
		Destination: b.Destination,
		ExporterID:  b.ExporterID,
		Status:      b.Status,
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
