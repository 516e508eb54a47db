package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/models"
)

// CollectionRepository implements the CollectionRepository interface
type CollectionRepository struct {
	q queryable
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(db *database.DB) *CollectionRepository {
	return &CollectionRepository{q: db.Pool}
}

// newCollectionRepositoryWithTx creates a new collection repository with a transaction
func newCollectionRepositoryWithTx(tx queryable) *CollectionRepository {
	return &CollectionRepository{q: tx}
}

const collectionColumns = `id, kind, host_account_id, state, item_price, currency, item_count, last_activity_at, created_at`

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	err := row.Scan(
		&c.ID,
		&c.Kind,
		&c.HostAccountID,
		&c.State,
		&c.ItemPrice,
		&c.Currency,
		&c.ItemCount,
		&c.LastActivityAt,
		&c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a collection and fills in its ID and timestamps
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	query := `
		INSERT INTO collections (kind, host_account_id, state, item_price, currency, item_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_activity_at, created_at
	`

	state := collection.State
	if state == "" {
		state = models.CollectionStateOpen
	}

	err := r.q.QueryRow(ctx, query,
		collection.Kind,
		collection.HostAccountID,
		state,
		collection.ItemPrice,
		collection.Currency,
		collection.ItemCount,
	).Scan(&collection.ID, &collection.LastActivityAt, &collection.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create %s collection: %w", collection.Kind, err)
	}

	collection.State = state
	return nil
}

// GetByID retrieves a collection, or nil if it does not exist
func (r *CollectionRepository) GetByID(ctx context.Context, id int64) (*models.Collection, error) {
	query := fmt.Sprintf(`SELECT %s FROM collections WHERE id = $1`, collectionColumns)

	collection, err := scanCollection(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %d: %w", id, err)
	}
	return collection, nil
}

// TransitionState atomically moves a collection between states with a
// conditional update. The state guard in the WHERE clause means only one of
// any number of concurrent claimers (including overlapping sweep instances)
// observes success; the rest get nil back.
func (r *CollectionRepository) TransitionState(ctx context.Context, id int64, from, to models.CollectionState) (*models.Collection, error) {
	query := fmt.Sprintf(`
		UPDATE collections
		SET state = $3, last_activity_at = NOW()
		WHERE id = $1 AND state = $2
		RETURNING %s
	`, collectionColumns)

	collection, err := scanCollection(r.q.QueryRow(ctx, query, id, from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to transition collection %d from %s to %s: %w", id, from, to, err)
	}

	return collection, nil
}

// TouchActivity bumps last_activity_at to now
func (r *CollectionRepository) TouchActivity(ctx context.Context, id int64) error {
	query := `UPDATE collections SET last_activity_at = NOW() WHERE id = $1`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch collection %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %d not found", id)
	}

	return nil
}

// GetOpenInactiveSince returns open collections with no activity since the
// given cutoff
func (r *CollectionRepository) GetOpenInactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM collections
		WHERE state = 'open' AND last_activity_at < $1
		ORDER BY last_activity_at
	`, collectionColumns)

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get inactive open collections: %w", err)
	}
	defer rows.Close()

	var collections []*models.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}

	return collections, nil
}

// DeleteTerminalBefore removes settled/abandoned collections whose last
// activity predates the cutoff. Items are removed by the cascade.
func (r *CollectionRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM collections
		WHERE state IN ('settled', 'abandoned') AND last_activity_at < $1
	`

	result, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale collections: %w", err)
	}

	return result.RowsAffected(), nil
}
