package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/domain"
	domerrors "github.com/aadyantmaity/minecollab/internal/domain/errors"
)

// ProfileRepository implements ports.ProfileRepository over the users collection.
type ProfileRepository struct {
	store ports.DocumentStore
}

func NewProfileRepository(store ports.DocumentStore) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	return r.put(ctx, p)
}

func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	return r.put(ctx, p)
}

func (r *ProfileRepository) Get(ctx context.Context, id domain.AccountID) (*domain.Profile, error) {
	raw, err := r.store.Get(ctx, CollectionUsers, id.String())
	if errors.Is(err, domerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.store.Delete(ctx, CollectionUsers, id.String())
}

func (r *ProfileRepository) put(ctx context.Context, p *domain.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return r.store.Set(ctx, CollectionUsers, p.AccountID.String(), raw)
}

// JournalRepository implements ports.ProvisioningJournal over the provisioning collection.
type JournalRepository struct {
	store ports.DocumentStore
}

func NewJournalRepository(store ports.DocumentStore) *JournalRepository {
	return &JournalRepository{store: store}
}

func (r *JournalRepository) Record(ctx context.Context, rec *domain.ProvisioningRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode provisioning record: %w", err)
	}
	return r.store.Set(ctx, CollectionProvisioning, rec.AccountID.String(), raw)
}

// Get returns domerrors.ErrNotFound when no saga was recorded for id.
func (r *JournalRepository) Get(ctx context.Context, id domain.AccountID) (*domain.ProvisioningRecord, error) {
	raw, err := r.store.Get(ctx, CollectionProvisioning, id.String())
	if err != nil {
		return nil, err
	}
	var rec domain.ProvisioningRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode provisioning record %s: %w", id, err)
	}
	return &rec, nil
}

var (
	_ ports.ProfileRepository   = (*ProfileRepository)(nil)
	_ ports.ProvisioningJournal = (*JournalRepository)(nil)
)
