package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
)

// BatchRepository — интерфейс CRUD для таблицы batches.
// Методы с параметром db позволяют выполнять запись внутри транзакции
// (pgx.Tx) или напрямую через пул — см. DBTX.
type BatchRepository interface {
	// Create создаёт новую партию.
	Create(ctx context.Context, b *model.Batch) error
	// GetByID возвращает партию по UUID.
	GetByID(ctx context.Context, id string) (*model.Batch, error)
	// List возвращает список партий с фильтрацией по status и exporter_id.
	List(ctx context.Context, status, exporterID *string, limit, offset int) ([]*model.Batch, error)
	// Update обновляет поля партии (статус не трогает).
	Update(ctx context.Context, b *model.Batch) error
	// UpdateStatus переводит партию в новый статус.
	// db — пул или транзакция (для парных записей жизненного цикла).
	UpdateStatus(ctx context.Context, db DBTX, id, status string) error
	// Delete удаляет партию (инспекции и сертификаты каскадом).
	Delete(ctx context.Context, id string) error
}

// batchRepo — реализация BatchRepository.
type batchRepo struct {
	db DBTX
}

// NewBatchRepository создаёт репозиторий партий.
func NewBatchRepository(db DBTX) BatchRepository {
	return &batchRepo{db: db}
}

const batchColumns = `id, product_type, quantity, unit, location, destination,
		exporter_id, status, notes, created_at, updated_at`

func scanBatch(row pgx.Row) (*model.Batch, error) {
	b := &model.Batch{}
	err := row.Scan(
		&b.ID, &b.ProductType, &b.Quantity, &b.Unit, &b.Location, &b.Destination,
		&b.ExporterID, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *batchRepo) Create(ctx context.Context, b *model.Batch) error {
	query := `
		INSERT INTO batches (id, product_type, quantity, unit, location, destination,
			exporter_id, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.ID, b.ProductType, b.Quantity, b.Unit, b.Location, b.Destination,
		b.ExporterID, b.Status, b.Notes,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания партии: %w", err)
	}
	return nil
}

func (r *batchRepo) GetByID(ctx context.Context, id string) (*model.Batch, error) {
	b, err := scanBatch(r.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения партии: %w", err)
	}
	return b, nil
}

func (r *batchRepo) List(ctx context.Context, status, exporterID *string, limit, offset int) ([]*model.Batch, error) {
	// Динамическое построение WHERE
	var conditions []string
	var args []any
	argNum := 1

	if status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *status)
		argNum++
	}
	if exporterID != nil {
		conditions = append(conditions, fmt.Sprintf("exporter_id = $%d", argNum))
		args = append(args, *exporterID)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+batchColumns+`
		FROM batches
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка партий: %w", err)
	}
	defer rows.Close()

	var result []*model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования партии: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *batchRepo) Update(ctx context.Context, b *model.Batch) error {
	query := `
		UPDATE batches
		SET product_type = $2, quantity = $3, unit = $4, location = $5,
			destination = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		b.ID, b.ProductType, b.Quantity, b.Unit, b.Location, b.Destination, b.Notes,
	).Scan(&b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления партии: %w", err)
	}
	return nil
}

func (r *batchRepo) UpdateStatus(ctx context.Context, db DBTX, id, status string) error {
	if db == nil {
		db = r.db
	}

	tag, err := db.Exec(ctx,
		`UPDATE batches SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса партии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления партии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
