package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
)

// InspectionRepository — интерфейс доступа к таблице inspections.
type InspectionRepository interface {
	// Create создаёт инспекцию. db — пул или транзакция: создание
	// инспекции идёт в паре с переводом партии в inspection_pending.
	Create(ctx context.Context, db DBTX, i *model.Inspection) error
	// GetByID возвращает инспекцию по UUID.
	GetByID(ctx context.Context, id string) (*model.Inspection, error)
	// List возвращает список инспекций с фильтрацией.
	List(ctx context.Context, batchID, qaAgencyID, status *string, limit, offset int) ([]*model.Inspection, error)
	// UpdateStatus переводит инспекцию в новый статус.
	UpdateStatus(ctx context.Context, db DBTX, id, status string) error
	// SaveFindings записывает промежуточные результаты без завершения.
	SaveFindings(ctx context.Context, i *model.Inspection) error
	// Complete записывает результаты и завершает инспекцию.
	Complete(ctx context.Context, db DBTX, i *model.Inspection) error
}

// inspectionRepo — реализация InspectionRepository.
type inspectionRepo struct {
	db DBTX
}

// NewInspectionRepository создаёт репозиторий инспекций.
func NewInspectionRepository(db DBTX) InspectionRepository {
	return &inspectionRepo{db: db}
}

const inspectionColumns = `id, batch_id, qa_agency_id, scheduled_date, status,
		moisture_level, pesticide_content, organic_status, iso_codes, notes,
		created_at, completed_at`

func scanInspection(row pgx.Row) (*model.Inspection, error) {
	i := &model.Inspection{}
	err := row.Scan(
		&i.ID, &i.BatchID, &i.QAAgencyID, &i.ScheduledDate, &i.Status,
		&i.MoistureLevel, &i.PesticideContent, &i.OrganicStatus, &i.ISOCodes, &i.Notes,
		&i.CreatedAt, &i.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *inspectionRepo) Create(ctx context.Context, db DBTX, i *model.Inspection) error {
	if db == nil {
		db = r.db
	}

	query := `
		INSERT INTO inspections (id, batch_id, qa_agency_id, scheduled_date, status, iso_codes, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := db.QueryRow(ctx, query,
		i.ID, i.BatchID, i.QAAgencyID, i.ScheduledDate, i.Status, i.ISOCodes, i.Notes,
	).Scan(&i.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания инспекции: %w", err)
	}
	return nil
}

func (r *inspectionRepo) GetByID(ctx context.Context, id string) (*model.Inspection, error) {
	i, err := scanInspection(r.db.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения инспекции: %w", err)
	}
	return i, nil
}

func (r *inspectionRepo) List(ctx context.Context, batchID, qaAgencyID, status *string, limit, offset int) ([]*model.Inspection, error) {
	// Динамическое построение WHERE
	var conditions []string
	var args []any
	argNum := 1

	if batchID != nil {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", argNum))
		args = append(args, *batchID)
		argNum++
	}
	if qaAgencyID != nil {
		conditions = append(conditions, fmt.Sprintf("qa_agency_id = $%d", argNum))
		args = append(args, *qaAgencyID)
		argNum++
	}
	if status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *status)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+inspectionColumns+`
		FROM inspections
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка инспекций: %w", err)
	}
	defer rows.Close()

	var result []*model.Inspection
	for rows.Next() {
		i, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования инспекции: %w", err)
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

func (r *inspectionRepo) UpdateStatus(ctx context.Context, db DBTX, id, status string) error {
	if db == nil {
		db = r.db
	}

	tag, err := db.Exec(ctx,
		`UPDATE inspections SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса инспекции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inspectionRepo) SaveFindings(ctx context.Context, i *model.Inspection) error {
	query := `
		UPDATE inspections
		SET status = $2, moisture_level = $3, pesticide_content = $4,
			organic_status = $5, iso_codes = $6, notes = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		i.ID, i.Status, i.MoistureLevel, i.PesticideContent,
		i.OrganicStatus, i.ISOCodes, i.Notes)
	if err != nil {
		return fmt.Errorf("ошибка записи результатов инспекции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *inspectionRepo) Complete(ctx context.Context, db DBTX, i *model.Inspection) error {
	if db == nil {
		db = r.db
	}

	query := `
		UPDATE inspections
		SET status = $2, moisture_level = $3, pesticide_content = $4,
			organic_status = $5, iso_codes = $6, notes = $7, completed_at = now()
		WHERE id = $1
		RETURNING completed_at`

	err := db.QueryRow(ctx, query,
		i.ID, i.Status, i.MoistureLevel, i.PesticideContent,
		i.OrganicStatus, i.ISOCodes, i.Notes,
	).Scan(&i.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка завершения инспекции: %w", err)
	}
	return nil
}
