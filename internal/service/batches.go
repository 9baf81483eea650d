// batches.go — сервис экспортных партий: подача, CRUD, смена статуса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/lifecycle"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/rbac"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
)

// Actor — аутентифицированный пользователь, выполняющий операцию.
type Actor struct {
	ID   string
	Role string
}

// BatchService — сервис управления партиями.
type BatchService struct {
	batchRepo repository.BatchRepository
	logger    *slog.Logger
}

// NewBatchService создаёт сервис партий.
func NewBatchService(batchRepo repository.BatchRepository, logger *slog.Logger) *BatchService {
	return &BatchService{
		batchRepo: batchRepo,
		logger:    logger.With(slog.String("component", "batch_service")),
	}
}

// SubmitBatchInput — входные данные подачи партии.
type SubmitBatchInput struct {
	ProductType string
	Quantity    float64
	Unit        string
	Location    string
	Destination string
	Notes       *string
}

// Submit подаёт новую партию на сертификацию от имени actor.
// Партия создаётся в статусе submitted, владелец — actor.
func (s *BatchService) Submit(ctx context.Context, actor Actor, in SubmitBatchInput) (*model.Batch, error) {
	if !rbac.CanSubmitBatch(actor.Role) {
		return nil, fmt.Errorf("%w: подача партий доступна ролям exporter и admin", ErrForbidden)
	}
	if in.ProductType == "" {
		return nil, fmt.Errorf("%w: productType обязателен", ErrValidation)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity должно быть положительным", ErrValidation)
	}
	if in.Location == "" {
		return nil, fmt.Errorf("%w: location обязателен", ErrValidation)
	}
	if in.Destination == "" {
		return nil, fmt.Errorf("%w: destination обязателен", ErrValidation)
	}

	unit := in.Unit
	if unit == "" {
		unit = "kg"
	}

	batch := &model.Batch{
		ID:          uuid.New().String(),
		ProductType: in.ProductType,
		Quantity:    in.Quantity,
		Unit:        unit,
		Location:    in.Location,
		Destination: in.Destination,
		ExporterID:  actor.ID,
		Status:      model.BatchStatusSubmitted,
		Notes:       in.Notes,
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("сохранение партии: %w", err)
	}

	s.logger.Info("Партия подана",
		slog.String("batch_id", batch.ID),
		slog.String("exporter_id", actor.ID),
		slog.String("product_type", batch.ProductType),
	)

	return batch, nil
}

// Get возвращает партию по id.
func (s *BatchService) Get(ctx context.Context, id string) (*model.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: партия %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение партии: %w", err)
	}
	return batch, nil
}

// List возвращает партии с фильтрацией по статусу и экспортёру.
// Экспортёр видит только собственные партии.
func (s *BatchService) List(ctx context.Context, actor Actor, status, exporterID *string, limit, offset int) ([]*model.Batch, error) {
	if status != nil && !lifecycle.IsValidBatchStatus(*status) {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, *status)
	}
	if actor.Role == rbac.RoleExporter {
		exporterID = &actor.ID
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	batches, err := s.batchRepo.List(ctx, status, exporterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("список партий: %w", err)
	}
	return batches, nil
}

// UpdateBatchInput — изменяемые поля партии.
type UpdateBatchInput struct {
	ProductType *string
	Quantity    *float64
	Unit        *string
	Location    *string
	Destination *string
	Notes       *string
}

// Update изменяет данные партии. Доступно владельцу и admin,
// пока партия не сертифицирована и не отклонена.
func (s *BatchService) Update(ctx context.Context, actor Actor, id string, in UpdateBatchInput) (*model.Batch, error) {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != rbac.RoleAdmin && batch.ExporterID != actor.ID {
		return nil, fmt.Errorf("%w: партия принадлежит другому экспортёру", ErrForbidden)
	}
	if batch.Status == model.BatchStatusCertified || batch.Status == model.BatchStatusRejected {
		return nil, fmt.Errorf("%w: партия в статусе %s не изменяется", ErrPrecondition, batch.Status)
	}

	if in.ProductType != nil {
		if *in.ProductType == "" {
			return nil, fmt.Errorf("%w: productType не может быть пустым", ErrValidation)
		}
		batch.ProductType = *in.ProductType
	}
	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity должно быть положительным", ErrValidation)
		}
		batch.Quantity = *in.Quantity
	}
	if in.Unit != nil && *in.Unit != "" {
		batch.Unit = *in.Unit
	}
	if in.Location != nil && *in.Location != "" {
		batch.Location = *in.Location
	}
	if in.Destination != nil && *in.Destination != "" {
		batch.Destination = *in.Destination
	}
	if in.Notes != nil {
		batch.Notes = in.Notes
	}

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("обновление партии: %w", err)
	}

	s.logger.Info("Партия обновлена", slog.String("batch_id", id))
	return batch, nil
}

// Reject переводит партию в терминальный статус rejected.
// Доступно ролям qa_agency и admin.
func (s *BatchService) Reject(ctx context.Context, actor Actor, id string) (*model.Batch, error) {
	if !rbac.CanManageInspections(actor.Role) {
		return nil, fmt.Errorf("%w: отклонение доступно ролям qa_agency и admin", ErrForbidden)
	}

	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckBatchTransition(batch.Status, model.BatchStatusRejected); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	if err := s.batchRepo.UpdateStatus(ctx, nil, id, model.BatchStatusRejected); err != nil {
		return nil, fmt.Errorf("смена статуса партии: %w", err)
	}
	batch.Status = model.BatchStatusRejected

	s.logger.Info("Партия отклонена", slog.String("batch_id", id))
	return batch, nil
}

// Delete удаляет партию вместе с инспекциями и сертификатами (каскад).
// Доступно владельцу и admin.
func (s *BatchService) Delete(ctx context.Context, actor Actor, id string) error {
	batch, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != rbac.RoleAdmin && batch.ExporterID != actor.ID {
		return fmt.Errorf("%w: партия принадлежит другому экспортёру", ErrForbidden)
	}

	if err := s.batchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: партия %s", ErrNotFound, id)
		}
		return fmt.Errorf("удаление партии: %w", err)
	}

	s.logger.Info("Партия удалена", slog.String("batch_id", id))
	return nil
}
