// Package documents maps the username index, profiles and the provisioning journal onto a
// ports.DocumentStore. Documents are JSON; keys are the lowercased username or the account id.
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

// Collection names.
const (
	CollectionUsernames    = "usernames"
	CollectionUsers        = "users"
	CollectionProvisioning = "provisioning"
)

// ReservationRepository implements ports.ReservationStore over the usernames collection.
type ReservationRepository struct {
	store ports.DocumentStore
	cond  ports.ConditionalWriter
}

// NewReservationRepository uses create-if-absent when store supports it.
func NewReservationRepository(store ports.DocumentStore) *ReservationRepository {
	r := &ReservationRepository{store: store}
	if cw, ok := store.(ports.ConditionalWriter); ok {
		r.cond = cw
	}
	return r
}

// Atomic reports whether Reserve is a create-if-absent write.
func (r *ReservationRepository) Atomic() bool {
	return r.cond != nil
}

func (r *ReservationRepository) Get(ctx context.Context, usernameLower string) (*domain.Reservation, error) {
	raw, err := r.store.Get(ctx, CollectionUsernames, usernameLower)
	if errors.Is(err, domerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := decodeReservation(usernameLower, raw)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ReservationRepository) Reserve(ctx context.Context, res *domain.Reservation) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	if r.cond == nil {
		return r.store.Set(ctx, CollectionUsernames, res.UsernameLower, raw)
	}
	created, err := r.cond.CreateIfAbsent(ctx, CollectionUsernames, res.UsernameLower, raw)
	if err != nil {
		return err
	}
	if !created {
		return domerrors.ErrAlreadyExists
	}
	return nil
}

func (r *ReservationRepository) Release(ctx context.Context, usernameLower string) error {
	return r.store.Delete(ctx, CollectionUsernames, usernameLower)
}

func (r *ReservationRepository) List(ctx context.Context) ([]*domain.Reservation, error) {
	docs, err := r.store.List(ctx, CollectionUsernames)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Reservation, 0, len(docs))
	for key, raw := range docs {
		res, err := decodeReservation(key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func decodeReservation(key string, raw []byte) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode reservation %q: %w", key, err)
	}
	res.UsernameLower = key
	return &res, nil
}

var _ ports.ReservationStore = (*ReservationRepository)(nil)
