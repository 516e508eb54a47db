package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/models"
)

// ReferralTokenRepository implements the ReferralTokenRepository interface
type ReferralTokenRepository struct {
	q queryable
}

// NewReferralTokenRepository creates a new referral token repository
func NewReferralTokenRepository(db *database.DB) *ReferralTokenRepository {
	return &ReferralTokenRepository{q: db.Pool}
}

// newReferralTokenRepositoryWithTx creates a new referral token repository with a transaction
func newReferralTokenRepositoryWithTx(tx queryable) *ReferralTokenRepository {
	return &ReferralTokenRepository{q: tx}
}

// Get retrieves a token row, or nil if it does not exist
func (r *ReferralTokenRepository) Get(ctx context.Context, token string) (*models.ReferralToken, error) {
	query := `
		SELECT token, owner_account_id, status, expires_at, created_at
		FROM referral_tokens
		WHERE token = $1
	`

	var t models.ReferralToken
	err := r.q.QueryRow(ctx, query, token).Scan(
		&t.Token,
		&t.OwnerAccountID,
		&t.Status,
		&t.ExpiresAt,
		&t.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral token: %w", err)
	}

	return &t, nil
}

// Create stores a newly issued token
func (r *ReferralTokenRepository) Create(ctx context.Context, token *models.ReferralToken) error {
	query := `
		INSERT INTO referral_tokens (token, owner_account_id, status, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		token.Token,
		token.OwnerAccountID,
		token.Status,
		token.ExpiresAt,
	).Scan(&token.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create referral token for account %d: %w", token.OwnerAccountID, err)
	}

	return nil
}
