// inspections.go — сервис инспекций: планирование, результаты, завершение.
// Парные записи (инспекция + статус партии) идут одной транзакцией.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/lifecycle"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/rbac"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
)

// TxRunner выполняет fn внутри транзакции.
// Реализуется repository.TxRunner; в тестах подменяется заглушкой.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// InspectionService — сервис управления инспекциями.
type InspectionService struct {
	inspRepo  repository.InspectionRepository
	batchRepo repository.BatchRepository
	txRunner  TxRunner
	logger    *slog.Logger
}

// NewInspectionService создаёт сервис инспекций.
func NewInspectionService(
	inspRepo repository.InspectionRepository,
	batchRepo repository.BatchRepository,
	txRunner TxRunner,
	logger *slog.Logger,
) *InspectionService {
	return &InspectionService{
		inspRepo:  inspRepo,
		batchRepo: batchRepo,
		txRunner:  txRunner,
		logger:    logger.With(slog.String("component", "inspection_service")),
	}
}

// ScheduleInput — входные данные планирования инспекции.
type ScheduleInput struct {
	BatchID       string
	QAAgencyID    string
	ScheduledDate time.Time
	ISOCodes      []string
	Notes         *string
}

// Schedule планирует инспекцию партии. Вставка инспекции и перевод
// партии в inspection_pending выполняются одной транзакцией.
func (s *InspectionService) Schedule(ctx context.Context, actor Actor, in ScheduleInput) (*model.Inspection, error) {
	if !rbac.CanManageInspections(actor.Role) {
		return nil, fmt.Errorf("%w: планирование инспекций доступно ролям qa_agency и admin", ErrForbidden)
	}
	if in.BatchID == "" {
		return nil, fmt.Errorf("%w: batchId обязателен", ErrValidation)
	}
	if in.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduledDate обязательна", ErrValidation)
	}

	qaAgencyID := in.QAAgencyID
	if qaAgencyID == "" {
		qaAgencyID = actor.ID
	}

	batch, err := s.batchRepo.GetByID(ctx, in.BatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: партия %s", ErrNotFound, in.BatchID)
		}
		return nil, fmt.Errorf("получение партии: %w", err)
	}

	if err := lifecycle.CheckBatchTransition(batch.Status, model.BatchStatusInspectionPending); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	insp := &model.Inspection{
		ID:            uuid.New().String(),
		BatchID:       in.BatchID,
		QAAgencyID:    qaAgencyID,
		ScheduledDate: in.ScheduledDate,
		Status:        model.InspectionStatusScheduled,
		ISOCodes:      in.ISOCodes,
		Notes:         in.Notes,
	}

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.inspRepo.Create(ctx, tx, insp); err != nil {
			return err
		}
		return s.batchRepo.UpdateStatus(ctx, tx, in.BatchID, model.BatchStatusInspectionPending)
	})
	if err != nil {
		return nil, fmt.Errorf("планирование инспекции: %w", err)
	}

	s.logger.Info("Инспекция запланирована",
		slog.String("inspection_id", insp.ID),
		slog.String("batch_id", in.BatchID),
		slog.String("qa_agency_id", qaAgencyID),
	)

	return insp, nil
}

// Get возвращает инспекцию по id.
func (s *InspectionService) Get(ctx context.Context, id string) (*model.Inspection, error) {
	insp, err := s.inspRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: инспекция %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение инспекции: %w", err)
	}
	return insp, nil
}

// List возвращает инспекции с фильтрацией по партии, агентству и статусу.
func (s *InspectionService) List(ctx context.Context, batchID, qaAgencyID, status *string, limit, offset int) ([]*model.Inspection, error) {
	if status != nil && !lifecycle.IsValidInspectionStatus(*status) {
		return nil, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, *status)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.inspRepo.List(ctx, batchID, qaAgencyID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("список инспекций: %w", err)
	}
	return list, nil
}

// FindingsInput — результаты инспекции.
type FindingsInput struct {
	MoistureLevel    *float64
	PesticideContent *float64
	OrganicStatus    *bool
	ISOCodes         []string
	Notes            *string
}

// RecordFindings записывает промежуточные результаты и переводит
// инспекцию в in_progress. Повторные записи допустимы.
func (s *InspectionService) RecordFindings(ctx context.Context, actor Actor, id string, in FindingsInput) (*model.Inspection, error) {
	if !rbac.CanManageInspections(actor.Role) {
		return nil, fmt.Errorf("%w: внесение результатов доступно ролям qa_agency и admin", ErrForbidden)
	}

	insp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckInspectionTransition(insp.Status, model.InspectionStatusInProgress); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	applyFindings(insp, in)
	insp.Status = model.InspectionStatusInProgress

	if err := s.inspRepo.SaveFindings(ctx, insp); err != nil {
		return nil, fmt.Errorf("запись результатов: %w", err)
	}

	s.logger.Info("Результаты инспекции записаны", slog.String("inspection_id", id))
	return insp, nil
}

// Complete завершает инспекцию: статус completed + результаты + перевод
// партии в inspection_completed одной транзакцией. Завершение напрямую
// из scheduled допустимо; повторное завершение — ошибка предусловия.
func (s *InspectionService) Complete(ctx context.Context, actor Actor, id string, in FindingsInput) (*model.Inspection, error) {
	if !rbac.CanManageInspections(actor.Role) {
		return nil, fmt.Errorf("%w: завершение инспекций доступно ролям qa_agency и admin", ErrForbidden)
	}

	insp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.CheckInspectionTransition(insp.Status, model.InspectionStatusCompleted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	batch, err := s.batchRepo.GetByID(ctx, insp.BatchID)
	if err != nil {
		return nil, fmt.Errorf("получение партии: %w", err)
	}
	if err := lifecycle.CheckBatchTransition(batch.Status, model.BatchStatusInspectionCompleted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	applyFindings(insp, in)
	insp.Status = model.InspectionStatusCompleted

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.inspRepo.Complete(ctx, tx, insp); err != nil {
			return err
		}
		return s.batchRepo.UpdateStatus(ctx, tx, insp.BatchID, model.BatchStatusInspectionCompleted)
	})
	if err != nil {
		return nil, fmt.Errorf("завершение инспекции: %w", err)
	}

	s.logger.Info("Инспекция завершена",
		slog.String("inspection_id", id),
		slog.String("batch_id", insp.BatchID),
	)

	return insp, nil
}

// applyFindings накладывает непустые поля результатов на инспекцию.
func applyFindings(insp *model.Inspection, in FindingsInput) {
	if in.MoistureLevel != nil {
		insp.MoistureLevel = in.MoistureLevel
	}
	if in.PesticideContent != nil {
		insp.PesticideContent = in.PesticideContent
	}
	if in.OrganicStatus != nil {
		insp.OrganicStatus = in.OrganicStatus
	}
	if in.ISOCodes != nil {
		insp.ISOCodes = in.ISOCodes
	}
	if in.Notes != nil {
		insp.Notes = in.Notes
	}
}
