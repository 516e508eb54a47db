package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"tombola/database"
	"tombola/models"
)

// ItemRepository implements the ItemRepository interface. Every state change
// goes through Transition, a single compare-and-transition update, so the
// state machine stays race-free without any in-process locking.
type ItemRepository struct {
	q queryable
}

// NewItemRepository creates a new reservable item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{q: db.Pool}
}

// newItemRepositoryWithTx creates a new reservable item repository with a transaction
func newItemRepositoryWithTx(tx queryable) *ItemRepository {
	return &ItemRepository{q: tx}
}

const itemColumns = `collection_id, item_index, state, holder_id, reserved_until, sold_at, paid_amount, updated_at`

func scanItem(row pgx.Row) (*models.ReservableItem, error) {
	var item models.ReservableItem
	err := row.Scan(
		&item.CollectionID,
		&item.ItemIndex,
		&item.State,
		&item.HolderID,
		&item.ReservedUntil,
		&item.SoldAt,
		&item.PaidAmount,
		&item.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateBatch seeds count items (indexes 1..count) for a collection
func (r *ItemRepository) CreateBatch(ctx context.Context, collectionID int64, count int) error {
	query := `
		INSERT INTO reservable_items (collection_id, item_index)
		SELECT $1, idx FROM generate_series(1, $2) AS idx
	`

	if _, err := r.q.Exec(ctx, query, collectionID, count); err != nil {
		return fmt.Errorf("failed to seed %d items for collection %d: %w", count, collectionID, err)
	}

	return nil
}

// Get retrieves an item, or nil if it does not exist
func (r *ItemRepository) Get(ctx context.Context, collectionID int64, itemIndex int) (*models.ReservableItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservable_items
		WHERE collection_id = $1 AND item_index = $2
	`, itemColumns)

	item, err := scanItem(r.q.QueryRow(ctx, query, collectionID, itemIndex))
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d/%d: %w", collectionID, itemIndex, err)
	}
	return item, nil
}

// ListByCollection returns all items of a collection ordered by index
func (r *ItemRepository) ListByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservable_items
		WHERE collection_id = $1
		ORDER BY item_index
	`, itemColumns)

	return r.queryItems(ctx, query, collectionID)
}

// ListHeldByCollection returns the reserved and sold items of a collection
func (r *ItemRepository) ListHeldByCollection(ctx context.Context, collectionID int64) ([]*models.ReservableItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservable_items
		WHERE collection_id = $1 AND state IN ('reserved', 'sold')
		ORDER BY item_index
	`, itemColumns)

	return r.queryItems(ctx, query, collectionID)
}

// ListExpiredReserved returns reserved items whose window lapsed before now
func (r *ItemRepository) ListExpiredReserved(ctx context.Context, now time.Time, limit int) ([]*models.ReservableItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reservable_items
		WHERE state = 'reserved' AND reserved_until < $1
		ORDER BY reserved_until
		LIMIT $2
	`, itemColumns)

	return r.queryItems(ctx, query, now, limit)
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]*models.ReservableItem, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.ReservableItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// Transition applies a state machine edge as a single conditional update.
// The WHERE clause re-checks the expected source state (plus holder and
// expiry guards), so under arbitrary interleavings of concurrent calls on
// the same item exactly one of them observes success. Returns nil with no
// error when the guard no longer matches.
func (r *ItemRepository) Transition(ctx context.Context, collectionID int64, itemIndex int, t models.ItemTransition) (*models.ReservableItem, error) {
	args := []any{collectionID, itemIndex, t.From}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var set []string
	switch t.To {
	case models.ItemStateReserved:
		set = []string{
			"state = 'reserved'",
			"holder_id = " + arg(t.HolderID),
			"reserved_until = " + arg(t.ReservedUntil),
		}
	case models.ItemStateSold:
		set = []string{
			"state = 'sold'",
			"sold_at = " + arg(t.SoldAt),
			"paid_amount = " + arg(t.PaidAmount),
			"reserved_until = NULL",
		}
	case models.ItemStateAvailable:
		set = []string{
			"state = 'available'",
			"holder_id = NULL",
			"reserved_until = NULL",
			"sold_at = NULL",
			"paid_amount = NULL",
		}
	default:
		return nil, fmt.Errorf("unsupported target state %q", t.To)
	}
	set = append(set, "updated_at = NOW()")

	where := []string{"collection_id = $1", "item_index = $2", "state = $3"}
	if t.MatchHolder {
		where = append(where, "holder_id = "+arg(t.HolderID))
	}
	if t.RequireUnexpired {
		where = append(where, "reserved_until > NOW()")
	}
	if t.RequireExpired {
		where = append(where, "reserved_until <= NOW()")
	}

	query := fmt.Sprintf(`
		UPDATE reservable_items
		SET %s
		WHERE %s
		RETURNING %s
	`, strings.Join(set, ", "), strings.Join(where, " AND "), itemColumns)

	item, err := scanItem(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to transition item %d/%d from %s to %s: %w",
			collectionID, itemIndex, t.From, t.To, err)
	}

	return item, nil
}
