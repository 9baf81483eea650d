// inspections.go — обработчики /api/v1/inspections endpoints.
// Планирование, список, результаты, завершение инспекций.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
)

// inspectionResponse — API-представление инспекции.
type inspectionResponse struct {
	ID               string   `json:"id"`
	BatchID          string   `json:"batchId"`
	QAAgencyID       string   `json:"qaAgencyId"`
	ScheduledDate    string   `json:"scheduledDate"`
	Status           string   `json:"status"`
	MoistureLevel    *float64 `json:"moistureLevel,omitempty"`
	PesticideContent *float64 `json:"pesticideContent,omitempty"`
	OrganicStatus    *bool    `json:"organicStatus,omitempty"`
	ISOCodes         []string `json:"isoCodes"`
	Notes            *string  `json:"notes,omitempty"`
	CreatedAt        string   `json:"createdAt"`
	CompletedAt      *string  `json:"completedAt,omitempty"`
}

// inspectionListResponse — ответ списка инспекций.
type inspectionListResponse struct {
	Items  []inspectionResponse `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// scheduleInspectionRequest — тело запроса планирования инспекции.
type scheduleInspectionRequest struct {
	BatchID       string    `json:"batchId"`
	QAAgencyID    string    `json:"qaAgencyId"`
	ScheduledDate time.Time `json:"scheduledDate"`
	ISOCodes      []string  `json:"isoCodes"`
	Notes         *string   `json:"notes"`
}

// findingsRequest — тело запроса результатов инспекции.
// Используется и для промежуточных результатов, и для завершения.
type findingsRequest struct {
	MoistureLevel    *float64 `json:"moistureLevel"`
	PesticideContent *float64 `json:"pesticideContent"`
	OrganicStatus    *bool    `json:"organicStatus"`
	ISOCodes         []string `json:"isoCodes"`
	Notes            *string  `json:"notes"`
}

// toInput конвертирует запрос в сервисный input.
func (req findingsRequest) toInput() service.FindingsInput {
	return service.FindingsInput{
		MoistureLevel:    req.MoistureLevel,
		PesticideContent: req.PesticideContent,
		OrganicStatus:    req.OrganicStatus,
		ISOCodes:         req.ISOCodes,
		Notes:            req.Notes,
	}
}

// ScheduleInspection — POST /api/v1/inspections.
// Планирует инспекцию партии. Доступ: qa_agency, admin.
func (h *APIHandler) ScheduleInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req scheduleInspectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	insp, err := h.inspections.Schedule(r.Context(), actor, service.ScheduleInput{
		BatchID:       req.BatchID,
		QAAgencyID:    req.QAAgencyID,
		ScheduledDate: req.ScheduledDate,
		ISOCodes:      req.ISOCodes,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка планирования инспекции")
		return
	}

	writeJSON(w, http.StatusCreated, mapInspection(insp))
}

// ListInspections — GET /api/v1/inspections.
// Список инспекций с фильтрами batchId, qaAgencyId, status.
func (h *APIHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	list, err := h.inspections.List(r.Context(),
		optionalQuery(r, "batchId"),
		optionalQuery(r, "qaAgencyId"),
		optionalQuery(r, "status"),
		limit, offset,
	)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка инспекций")
		return
	}

	items := make([]inspectionResponse, len(list))
	for i, insp := range list {
		items[i] = mapInspection(insp)
	}

	writeJSON(w, http.StatusOK, inspectionListResponse{
		Items:  items,
		Limit:  limit,
		Offset: offset,
	})
}

// GetInspection — GET /api/v1/inspections/{id}.
func (h *APIHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	insp, err := h.inspections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения инспекции")
		return
	}

	writeJSON(w, http.StatusOK, mapInspection(insp))
}

// RecordFindings — PUT /api/v1/inspections/{id}.
// Записывает промежуточные результаты, инспекция переходит в in_progress.
// Доступ: qa_agency, admin.
func (h *APIHandler) RecordFindings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req findingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	insp, err := h.inspections.RecordFindings(r.Context(), actor, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка записи результатов инспекции")
		return
	}

	writeJSON(w, http.StatusOK, mapInspection(insp))
}

// CompleteInspection — POST /api/v1/inspections/{id}/complete.
// Завершает инспекцию, партия переходит в inspection_completed.
// Доступ: qa_agency, admin.
func (h *APIHandler) CompleteInspection(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	// Тело опционально: завершение может идти без новых результатов
	var req findingsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	insp, err := h.inspections.Complete(r.Context(), actor, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка завершения инспекции")
		return
	}

	writeJSON(w, http.StatusOK, mapInspection(insp))
}

// mapInspection конвертирует domain model в API-представление.
func mapInspection(i *model.Inspection) inspectionResponse {
	resp := inspectionResponse{
		ID:               i.ID,
		BatchID:          i.BatchID,
		QAAgencyID:       i.QAAgencyID,
		ScheduledDate:    i.ScheduledDate.UTC().Format(time.RFC3339),
		Status:           i.Status,
		MoistureLevel:    i.MoistureLevel,
		PesticideContent: i.PesticideContent,
		OrganicStatus:    i.OrganicStatus,
		ISOCodes:         i.ISOCodes,
		Notes:            i.Notes,
		CreatedAt:        i.CreatedAt.UTC().Format(time.RFC3339),
	}
	if resp.ISOCodes == nil {
		resp.ISOCodes = []string{}
	}
	if i.CompletedAt != nil {
		s := i.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
