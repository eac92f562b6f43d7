package order

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const replicateTimeout = 2 * time.Second

// TwoTierStore composes the primary store with the local cache behind the
// single Store contract. Every successful primary write is replicated to
// the cache asynchronously; replication failures are logged, never
// propagated. Reads consult the primary first and fall back to the cache
// when the primary is unavailable or misses.
type TwoTierStore struct {
	primary Store
	cache   *Cache
}

func NewTwoTierStore(primary Store, cache *Cache) *TwoTierStore {
	return &TwoTierStore{primary: primary, cache: cache}
}

func (s *TwoTierStore) Create(ctx context.Context, o *Order) error {
	if err := s.primary.Create(ctx, o); err != nil {
		return err
	}
	s.replicate(o)
	return nil
}

func (s *TwoTierStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.primary.Get(ctx, id)
	if err == nil {
		return o, nil
	}
	if errors.Is(err, ErrOrderNotFound) {
		// A miss can mean the primary is partially synced; check the
		// local replica before reporting not found.
		if cached, cacheErr := s.cache.Get(ctx, id); cacheErr == nil {
			return cached, nil
		}
		return nil, ErrOrderNotFound
	}

	log.Warn().Err(err).Stringer("order_id", id).Msg("store: primary get failed, falling back to cache")
	cached, cacheErr := s.cache.Get(ctx, id)
	if cacheErr != nil {
		return nil, err
	}
	return cached, nil
}

func (s *TwoTierStore) Update(ctx context.Context, id uuid.UUID, p Patch) (*Order, error) {
	o, err := s.primary.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.replicate(o)
	return o, nil
}

func (s *TwoTierStore) TransitionCertificate(ctx context.Context, id uuid.UUID, to CertificateStatus, from ...CertificateStatus) (bool, error) {
	won, err := s.primary.TransitionCertificate(ctx, id, to, from...)
	if err != nil || !won {
		return won, err
	}
	if o, getErr := s.primary.Get(ctx, id); getErr == nil {
		s.replicate(o)
	}
	return true, nil
}

func (s *TwoTierStore) ResetCertificate(ctx context.Context, id uuid.UUID) (*Order, bool, error) {
	o, won, err := s.primary.ResetCertificate(ctx, id)
	if err != nil || !won {
		return nil, won, err
	}
	s.replicate(o)
	return o, true, nil
}

func (s *TwoTierStore) GetByCertificateID(ctx context.Context, certID string) (*Order, error) {
	return s.primary.GetByCertificateID(ctx, certID)
}

func (s *TwoTierStore) GetByTxRef(ctx context.Context, txRef string) (*Order, error) {
	return s.primary.GetByTxRef(ctx, txRef)
}

func (s *TwoTierStore) Scan(ctx context.Context, limit int) ([]Order, error) {
	return s.primary.Scan(ctx, limit)
}

// Cache exposes the replica tier for degraded-mode lookups.
func (s *TwoTierStore) Cache() *Cache {
	return s.cache
}

func (s *TwoTierStore) replicate(o *Order) {
	copied := *o
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), replicateTimeout)
		defer cancel()
		if err := s.cache.Put(ctx, &copied); err != nil {
			log.Warn().Err(err).Stringer("order_id", copied.ID).Msg("store: cache replication failed")
		}
	}()
}

var _ Store = (*TwoTierStore)(nil)
