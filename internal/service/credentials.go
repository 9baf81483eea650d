// credentials.go — выпуск, выдача и верификация сертификатов качества.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/domain/rbac"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
	"github.com/ArokiaMartinN/agriqcert/internal/vc"
)

// Коды причин отказа верификации. Намеренно грубые: публичный endpoint
// не раскрывает внутренние детали.
const (
	ReasonValid                  = "valid"
	ReasonNotFound               = "credential_not_found"
	ReasonNotIssued              = "credential_not_issued"
	ReasonInspectionNotCompleted = "inspection_not_completed"
	ReasonBatchNotCertified      = "batch_not_certified"
	ReasonExpired                = "credential_expired"
	ReasonIntegrityFailure       = "integrity_check_failed"
	ReasonMalformed              = "credential_malformed"
)

// CredentialService — сервис сертификатов.
type CredentialService struct {
	credRepo      repository.CredentialRepository
	inspRepo      repository.InspectionRepository
	batchRepo     repository.BatchRepository
	txRunner      TxRunner
	signingSecret string
	ttl           time.Duration
	strictIssuer  bool
	publicBaseURL string
	logger        *slog.Logger
}

// NewCredentialService создаёт сервис сертификатов.
func NewCredentialService(
	credRepo repository.CredentialRepository,
	inspRepo repository.InspectionRepository,
	batchRepo repository.BatchRepository,
	txRunner TxRunner,
	signingSecret string,
	ttl time.Duration,
	strictIssuer bool,
	publicBaseURL string,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		credRepo:      credRepo,
		inspRepo:      inspRepo,
		batchRepo:     batchRepo,
		txRunner:      txRunner,
		signingSecret: signingSecret,
		ttl:           ttl,
		strictIssuer:  strictIssuer,
		publicBaseURL: publicBaseURL,
		logger:        logger.With(slog.String("component", "credential_service")),
	}
}

// IssueResult — подтверждение выпуска сертификата.
type IssueResult struct {
	ID             string
	Issuer         string
	IssuanceDate   string
	ExpirationDate string
	Payload        vc.Payload
}

// Issue выпускает сертификат по завершённой инспекции.
// Предусловия проверяются по порядку: инспекция существует → завершена →
// роль допускает выпуск → сертификата ещё нет. Запись сертификата и
// перевод партии в certified — одна транзакция; уникальный индекс на
// inspection_id — финальная защита от гонки двойного выпуска.
func (s *CredentialService) Issue(ctx context.Context, actor Actor, inspectionID string) (*IssueResult, error) {
	insp, err := s.inspRepo.GetByID(ctx, inspectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: инспекция %s", ErrNotFound, inspectionID)
		}
		return nil, fmt.Errorf("получение инспекции: %w", err)
	}

	if insp.Status != model.InspectionStatusCompleted {
		return nil, fmt.Errorf("%w: инспекция в статусе %s, выпуск возможен только по завершённой", ErrPrecondition, insp.Status)
	}

	if !rbac.CanIssueCredential(actor.Role) {
		return nil, fmt.Errorf("%w: выпуск сертификатов доступен ролям qa_agency и admin", ErrForbidden)
	}

	// Предварительная проверка дубликата; настоящая гарантия — индекс в БД
	if existing, err := s.credRepo.GetByInspectionID(ctx, inspectionID); err == nil {
		return nil, &ConflictError{ExistingID: existing.ID}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("проверка дубликата: %w", err)
	}

	// Соответствие issuer назначенному агентству
	if actor.Role == rbac.RoleQAAgency && actor.ID != insp.QAAgencyID {
		if s.strictIssuer {
			return nil, fmt.Errorf("%w: инспекция назначена другому агентству", ErrAuth)
		}
		s.logger.Warn("Выпуск сертификата не назначенным агентством",
			slog.String("inspection_id", inspectionID),
			slog.String("assigned_agency", insp.QAAgencyID),
			slog.String("issuer", actor.ID),
		)
	}

	batch, err := s.batchRepo.GetByID(ctx, insp.BatchID)
	if err != nil {
		return nil, fmt.Errorf("получение партии: %w", err)
	}

	// Снимок данных партии и инспекции на момент выпуска
	payload := vc.New(actor.ID, time.Now(), s.ttl, vc.Subject{
		ProductType:      batch.ProductType,
		Quantity:         batch.Quantity,
		Location:         batch.Location,
		Destination:      batch.Destination,
		MoistureLevel:    insp.MoistureLevel,
		PesticideContent: insp.PesticideContent,
		OrganicStatus:    insp.OrganicStatus,
		ISOCodes:         insp.ISOCodes,
		BatchID:          batch.ID,
		InspectionID:     insp.ID,
	})
	if err := vc.Seal(&payload, s.signingSecret); err != nil {
		return nil, fmt.Errorf("формирование proof: %w", err)
	}

	data, err := vc.Marshal(payload)
	if err != nil {
		return nil, err
	}

	cred := &model.Credential{
		ID:           uuid.New().String(),
		InspectionID: inspectionID,
		IssuerID:     actor.ID,
		Payload:      data,
		Status:       model.CredentialStatusIssued,
	}

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.credRepo.Create(ctx, tx, cred); err != nil {
			return err
		}
		return s.batchRepo.UpdateStatus(ctx, tx, batch.ID, model.BatchStatusCertified)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Гонка: параллельный выпуск успел раньше
			if existing, getErr := s.credRepo.GetByInspectionID(ctx, inspectionID); getErr == nil {
				return nil, &ConflictError{ExistingID: existing.ID}
			}
			return nil, &ConflictError{}
		}
		return nil, fmt.Errorf("сохранение сертификата: %w", err)
	}

	s.logger.Info("Сертификат выпущен",
		slog.String("credential_id", cred.ID),
		slog.String("inspection_id", inspectionID),
		slog.String("batch_id", batch.ID),
		slog.String("issuer_id", actor.ID),
	)

	return &IssueResult{
		ID:             cred.ID,
		Issuer:         payload.Issuer,
		IssuanceDate:   payload.IssuanceDate,
		ExpirationDate: payload.ExpirationDate,
		Payload:        payload,
	}, nil
}

// Get возвращает сертификат с разобранным payload.
func (s *CredentialService) Get(ctx context.Context, id string) (*model.Credential, vc.Payload, error) {
	cred, err := s.credRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, vc.Payload{}, fmt.Errorf("%w: сертификат %s", ErrNotFound, id)
		}
		return nil, vc.Payload{}, fmt.Errorf("получение сертификата: %w", err)
	}

	payload, err := vc.Parse(cred.Payload)
	if err != nil {
		return nil, vc.Payload{}, fmt.Errorf("разбор payload: %w", err)
	}
	return cred, payload, nil
}

// VerificationResult — результат верификации.
type VerificationResult struct {
	IsValid bool
	Reason  string
	Payload *vc.Payload
}

// Verify проверяет сертификат по id. Публичная операция без побочных
// эффектов. Порядок проверок: существует → issued → инспекция завершена →
// партия сертифицирована → не истёк → stamp сходится. Любой отказ
// возвращает isValid=false с грубым кодом причины, не ошибку.
func (s *CredentialService) Verify(ctx context.Context, id string) (*VerificationResult, error) {
	cc, err := s.credRepo.GetContext(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &VerificationResult{Reason: ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("получение контекста сертификата: %w", err)
	}

	if cc.Status != model.CredentialStatusIssued {
		return &VerificationResult{Reason: ReasonNotIssued}, nil
	}
	if cc.InspectionStatus != model.InspectionStatusCompleted {
		return &VerificationResult{Reason: ReasonInspectionNotCompleted}, nil
	}
	if cc.BatchStatus != model.BatchStatusCertified {
		return &VerificationResult{Reason: ReasonBatchNotCertified}, nil
	}

	payload, err := vc.Parse(cc.Payload)
	if err != nil {
		s.logger.Error("Payload сертификата не разбирается",
			slog.String("credential_id", id),
			slog.String("error", err.Error()),
		)
		return &VerificationResult{Reason: ReasonMalformed}, nil
	}

	return s.verifyPayload(id, payload), nil
}

// VerifyDocument проверяет предъявленный документ сертификата без
// обращения к хранилищу: только срок действия и integrity stamp.
// Используется офлайн-верификаторами, получившими документ целиком.
func (s *CredentialService) VerifyDocument(data []byte) *VerificationResult {
	payload, err := vc.Parse(data)
	if err != nil {
		return &VerificationResult{Reason: ReasonMalformed}
	}
	return s.verifyPayload("", payload)
}

// verifyPayload — общие проверки срока действия и stamp.
func (s *CredentialService) verifyPayload(id string, payload vc.Payload) *VerificationResult {
	if vc.IsExpired(payload, time.Now()) {
		return &VerificationResult{Reason: ReasonExpired, Payload: &payload}
	}

	ok, err := vc.VerifyStamp(payload, s.signingSecret)
	if err != nil || !ok {
		if id != "" {
			s.logger.Warn("Integrity stamp не сходится", slog.String("credential_id", id))
		}
		return &VerificationResult{Reason: ReasonIntegrityFailure}
	}

	return &VerificationResult{IsValid: true, Reason: ReasonValid, Payload: &payload}
}

// QRCode генерирует PNG QR-код со ссылкой на verify-страницу сертификата.
// Возвращает data URL (base64) и закодированную ссылку.
func (s *CredentialService) QRCode(ctx context.Context, id string) (dataURL, verifyURL string, err error) {
	// Убеждаемся, что сертификат существует
	if _, err := s.credRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", fmt.Errorf("%w: сертификат %s", ErrNotFound, id)
		}
		return "", "", fmt.Errorf("получение сертификата: %w", err)
	}

	verifyURL = fmt.Sprintf("%s/verify/%s", s.publicBaseURL, id)

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return "", "", fmt.Errorf("генерация QR-кода: %w", err)
	}

	dataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	return dataURL, verifyURL, nil
}
