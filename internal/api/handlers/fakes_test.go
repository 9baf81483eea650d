package handlers

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
)

// In-memory заглушки репозиториев для тестов обработчиков.
// Обработчики тестируются поверх настоящего сервисного слоя.

// --- TxRunner ---

type fakeTxRunner struct{}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// --- UserRepository ---

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- BatchRepository ---

type fakeBatchRepo struct {
	batches map[string]*model.Batch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: map[string]*model.Batch{}}
}

func (r *fakeBatchRepo) Create(_ context.Context, b *model.Batch) error {
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *fakeBatchRepo) GetByID(_ context.Context, id string) (*model.Batch, error) {
	b, ok := r.batches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) List(_ context.Context, status, exporterID *string, limit, offset int) ([]*model.Batch, error) {
	var result []*model.Batch
	for _, b := range r.batches {
		if status != nil && b.Status != *status {
			continue
		}
		if exporterID != nil && b.ExporterID != *exporterID {
			continue
		}
		cp := *b
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeBatchRepo) Update(_ context.Context, b *model.Batch) error {
	if _, ok := r.batches[b.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *fakeBatchRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id, status string) error {
	b, ok := r.batches[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeBatchRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.batches[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.batches, id)
	return nil
}

// --- InspectionRepository ---

type fakeInspectionRepo struct {
	inspections map[string]*model.Inspection
}

func newFakeInspectionRepo() *fakeInspectionRepo {
	return &fakeInspectionRepo{inspections: map[string]*model.Inspection{}}
}

func (r *fakeInspectionRepo) Create(_ context.Context, _ repository.DBTX, i *model.Inspection) error {
	cp := *i
	r.inspections[i.ID] = &cp
	return nil
}

func (r *fakeInspectionRepo) GetByID(_ context.Context, id string) (*model.Inspection, error) {
	i, ok := r.inspections[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (r *fakeInspectionRepo) List(_ context.Context, batchID, qaAgencyID, status *string, limit, offset int) ([]*model.Inspection, error) {
	var result []*model.Inspection
	for _, i := range r.inspections {
		if batchID != nil && i.BatchID != *batchID {
			continue
		}
		if qaAgencyID != nil && i.QAAgencyID != *qaAgencyID {
			continue
		}
		if status != nil && i.Status != *status {
			continue
		}
		cp := *i
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeInspectionRepo) UpdateStatus(_ context.Context, _ repository.DBTX, id, status string) error {
	i, ok := r.inspections[id]
	if !ok {
		return repository.ErrNotFound
	}
	i.Status = status
	return nil
}

func (r *fakeInspectionRepo) SaveFindings(_ context.Context, i *model.Inspection) error {
	if _, ok := r.inspections[i.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *i
	r.inspections[i.ID] = &cp
	return nil
}

func (r *fakeInspectionRepo) Complete(_ context.Context, _ repository.DBTX, i *model.Inspection) error {
	if _, ok := r.inspections[i.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *i
	r.inspections[i.ID] = &cp
	return nil
}

// --- CredentialRepository ---

type fakeCredentialRepo struct {
	credentials map[string]*model.Credential
	inspRepo    *fakeInspectionRepo
	batchRepo   *fakeBatchRepo
}

func newFakeCredentialRepo(inspRepo *fakeInspectionRepo, batchRepo *fakeBatchRepo) *fakeCredentialRepo {
	return &fakeCredentialRepo{
		credentials: map[string]*model.Credential{},
		inspRepo:    inspRepo,
		batchRepo:   batchRepo,
	}
}

func (r *fakeCredentialRepo) Create(_ context.Context, _ repository.DBTX, c *model.Credential) error {
	for _, existing := range r.credentials {
		if existing.InspectionID == c.InspectionID {
			return repository.ErrConflict
		}
	}
	cp := *c
	r.credentials[c.ID] = &cp
	return nil
}

func (r *fakeCredentialRepo) GetByID(_ context.Context, id string) (*model.Credential, error) {
	c, ok := r.credentials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCredentialRepo) GetByInspectionID(_ context.Context, inspectionID string) (*model.Credential, error) {
	for _, c := range r.credentials {
		if c.InspectionID == inspectionID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCredentialRepo) GetContext(_ context.Context, id string) (*model.CredentialContext, error) {
	c, ok := r.credentials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	insp, ok := r.inspRepo.inspections[c.InspectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	batch, ok := r.batchRepo.batches[insp.BatchID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.CredentialContext{
		Credential:       *c,
		InspectionStatus: insp.Status,
		BatchID:          batch.ID,
		BatchStatus:      batch.Status,
	}, nil
}
