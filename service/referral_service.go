package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tombola/models"
)

type referralService struct {
	uowFactory UnitOfWorkFactory
}

// NewReferralService creates a new referral attribution service
func NewReferralService(uowFactory UnitOfWorkFactory) ReferralService {
	return &referralService{
		uowFactory: uowFactory,
	}
}

// Resolve maps a bearer token to its owning account. The signature carries
// no error: referral attribution is fail-soft and must never block the
// registration flow that calls it, so every failure mode collapses to
// ok=false. Lookup failures are logged at warn and swallowed.
func (s *referralService) Resolve(ctx context.Context, token string) (int64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Warn("Referral lookup unavailable")
		return 0, false
	}
	defer uow.Rollback()

	row, err := uow.ReferralTokenRepository().Get(ctx, token)
	if err != nil {
		log.WithError(err).Warn("Referral lookup failed")
		return 0, false
	}
	if row == nil || !row.Resolvable(time.Now()) {
		return 0, false
	}

	return row.OwnerAccountID, true
}

// Issue creates a new active token for the owner
func (s *referralService) Issue(ctx context.Context, ownerAccountID int64, expiresAt *time.Time) (*models.ReferralToken, error) {
	if ownerAccountID <= 0 {
		return nil, fmt.Errorf("owner account id must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	token := &models.ReferralToken{
		Token:          uuid.NewString(),
		OwnerAccountID: ownerAccountID,
		Status:         models.ReferralTokenStatusActive,
		ExpiresAt:      expiresAt,
	}

	if err := uow.ReferralTokenRepository().Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to issue referral token: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return token, nil
}
