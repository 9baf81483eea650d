package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
)

// CredentialRepository — интерфейс доступа к таблице credentials.
// Сертификаты неизменяемы: операций обновления и удаления нет.
type CredentialRepository interface {
	// Create сохраняет сертификат. При повторном выпуске по той же
	// инспекции возвращает ErrConflict (уникальный индекс на inspection_id).
	// db — пул или транзакция: выпуск идёт в паре с переводом партии в certified.
	Create(ctx context.Context, db DBTX, c *model.Credential) error
	// GetByID возвращает сертификат по UUID.
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	// GetByInspectionID возвращает сертификат, выпущенный по инспекции.
	GetByInspectionID(ctx context.Context, inspectionID string) (*model.Credential, error)
	// GetContext возвращает сертификат вместе со статусами инспекции
	// и партии — одним JOIN-запросом для верификатора.
	GetContext(ctx context.Context, id string) (*model.CredentialContext, error)
}

// credentialRepo — реализация CredentialRepository.
type credentialRepo struct {
	db DBTX
}

// NewCredentialRepository создаёт репозиторий сертификатов.
func NewCredentialRepository(db DBTX) CredentialRepository {
	return &credentialRepo{db: db}
}

const credentialColumns = `id, inspection_id, issuer_id, payload, status, created_at`

func scanCredential(row pgx.Row) (*model.Credential, error) {
	c := &model.Credential{}
	err := row.Scan(&c.ID, &c.InspectionID, &c.IssuerID, &c.Payload, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *credentialRepo) Create(ctx context.Context, db DBTX, c *model.Credential) error {
	if db == nil {
		db = r.db
	}

	query := `
		INSERT INTO credentials (id, inspection_id, issuer_id, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := db.QueryRow(ctx, query,
		c.ID, c.InspectionID, c.IssuerID, c.Payload, c.Status,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: сертификат по инспекции уже выпущен", ErrConflict)
		}
		return fmt.Errorf("ошибка создания сертификата: %w", err)
	}
	return nil
}

func (r *credentialRepo) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	c, err := scanCredential(r.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сертификата: %w", err)
	}
	return c, nil
}

func (r *credentialRepo) GetByInspectionID(ctx context.Context, inspectionID string) (*model.Credential, error) {
	c, err := scanCredential(r.db.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE inspection_id = $1`, inspectionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сертификата: %w", err)
	}
	return c, nil
}

func (r *credentialRepo) GetContext(ctx context.Context, id string) (*model.CredentialContext, error) {
	query := `
		SELECT c.id, c.inspection_id, c.issuer_id, c.payload, c.status, c.created_at,
			i.status, b.id, b.status
		FROM credentials c
		JOIN inspections i ON i.id = c.inspection_id
		JOIN batches b ON b.id = i.batch_id
		WHERE c.id = $1`

	cc := &model.CredentialContext{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&cc.ID, &cc.InspectionID, &cc.IssuerID, &cc.Payload, &cc.Status, &cc.CreatedAt,
		&cc.InspectionStatus, &cc.BatchID, &cc.BatchStatus,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения контекста сертификата: %w", err)
	}
	return cc, nil
}
