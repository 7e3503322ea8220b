package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"digifeeds/internal/domain"
	"digifeeds/internal/query"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetItem(ctx context.Context, barcode string) (domain.Item, error) {
	item, err := s.loadItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *PostgresStore) AddItem(ctx context.Context, barcode string) (domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (barcode) VALUES ($1)
	`, barcode)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, ErrAlreadyExists
		}
		return domain.Item{}, err
	}
	return s.loadItem(ctx, barcode)
}

// GetOrCreateItem returns the existing item or creates one with no events.
// Two callers racing on the same barcode both get the item: the loser of the
// insert race falls back to the winner's row.
func (s *PostgresStore) GetOrCreateItem(ctx context.Context, barcode string) (domain.Item, error) {
	item, err := s.GetItem(ctx, barcode)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Item{}, err
	}
	item, err = s.AddItem(ctx, barcode)
	if errors.Is(err, ErrAlreadyExists) {
		return s.GetItem(ctx, barcode)
	}
	return item, err
}

// AddStatus appends a status event. It is deliberately not idempotent:
// calling it twice records two events. The pipeline decides when a repeat
// append is meaningful.
func (s *PostgresStore) AddStatus(ctx context.Context, barcode string, status domain.StatusName) (domain.Item, error) {
	var statusID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM statuses WHERE name = $1`, string(status)).Scan(&statusID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, ErrStatusNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO item_statuses (item_barcode, status_id)
		SELECT barcode, $2 FROM items WHERE barcode = $1
	`, barcode, statusID)
	if err != nil {
		return domain.Item{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, err
	}
	if n == 0 {
		return domain.Item{}, ErrNotFound
	}

	return s.loadItem(ctx, barcode)
}

// SetHathifilesTimestamp writes the one-time confirmation timestamp and
// appends the in_hathifiles event in the same transaction.
func (s *PostgresStore) SetHathifilesTimestamp(ctx context.Context, barcode string, ts time.Time) (domain.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE items SET hathifiles_timestamp = $2
		WHERE barcode = $1 AND hathifiles_timestamp IS NULL
	`, barcode, ts)
	if err != nil {
		return domain.Item{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Item{}, err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE barcode = $1)`, barcode).Scan(&exists); err != nil {
			return domain.Item{}, err
		}
		if !exists {
			return domain.Item{}, ErrNotFound
		}
		return domain.Item{}, ErrAlreadyHasValue
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_statuses (item_barcode, status_id)
		SELECT $1, id FROM statuses WHERE name = $2
	`, barcode, string(domain.StatusInHathifiles))
	if err != nil {
		return domain.Item{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return s.loadItem(ctx, barcode)
}

// ListItems returns one page of items plus the unpaged total. The fixed
// filter enum and the query language combine; both are ANDed. Ordering is by
// creation time then barcode so pages are stable.
func (s *PostgresStore) ListItems(ctx context.Context, filter domain.ItemFilter, q string, limit, offset int) ([]domain.Item, int64, error) {
	preds, err := query.Parse(q)
	if err != nil {
		return nil, 0, err
	}
	if filter != "" {
		p, err := filterPredicate(filter)
		if err != nil {
			return nil, 0, err
		}
		preds = append(preds, p)
	}

	where, args := query.ToSQL(preds, 1)
	whereClause := ""
	if where != "" {
		whereClause = " WHERE " + where
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT barcode, created_at, hathifiles_timestamp FROM items%s
		ORDER BY created_at, barcode
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, listQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	barcodes := make([]string, 0)
	for rows.Next() {
		var item domain.Item
		var hft sql.NullTime
		if err := rows.Scan(&item.Barcode, &item.CreatedAt, &hft); err != nil {
			return nil, 0, err
		}
		if hft.Valid {
			item.HathifilesTimestamp = &hft.Time
		}
		items = append(items, item)
		barcodes = append(barcodes, item.Barcode)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	events, err := s.loadEvents(ctx, barcodes)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Statuses = events[items[i].Barcode]
	}
	return items, total, nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, barcode string) (domain.Item, error) {
	// Load first so the response can include the statuses the cascade removes.
	item, err := s.loadItem(ctx, barcode)
	if err != nil {
		return domain.Item{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE barcode = $1`, barcode); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetStatuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description FROM statuses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]domain.Status, 0)
	for rows.Next() {
		var st domain.Status
		if err := rows.Scan(&st.Name, &st.Description); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (s *PostgresStore) loadItem(ctx context.Context, barcode string) (domain.Item, error) {
	var item domain.Item
	var hft sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT barcode, created_at, hathifiles_timestamp FROM items WHERE barcode = $1
	`, barcode).Scan(&item.Barcode, &item.CreatedAt, &hft)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, ErrNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	if hft.Valid {
		item.HathifilesTimestamp = &hft.Time
	}

	events, err := s.loadEvents(ctx, []string{barcode})
	if err != nil {
		return domain.Item{}, err
	}
	item.Statuses = events[barcode]
	return item, nil
}

func (s *PostgresStore) loadEvents(ctx context.Context, barcodes []string) (map[string][]domain.StatusEvent, error) {
	out := make(map[string][]domain.StatusEvent, len(barcodes))
	if len(barcodes) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT its.item_barcode, s.name, s.description, its.created_at
		FROM item_statuses its
		JOIN statuses s ON s.id = its.status_id
		WHERE its.item_barcode = ANY($1)
		ORDER BY its.created_at, its.id
	`, pq.Array(barcodes))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var barcode string
		var ev domain.StatusEvent
		if err := rows.Scan(&barcode, &ev.Name, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out[barcode] = append(out[barcode], ev)
	}
	return out, rows.Err()
}

func filterPredicate(filter domain.ItemFilter) (query.Predicate, error) {
	switch filter {
	case domain.FilterInZephir:
		return query.StatusPredicate{Status: string(domain.StatusInZephir)}, nil
	case domain.FilterNotInZephir:
		return query.StatusPredicate{Status: string(domain.StatusInZephir), Negated: true}, nil
	case domain.FilterPendingDeletion:
		return query.StatusPredicate{Status: string(domain.StatusPendingDeletion)}, nil
	case domain.FilterNotPendingDeletion:
		return query.StatusPredicate{Status: string(domain.StatusPendingDeletion), Negated: true}, nil
	case domain.FilterNotFoundInAlma:
		return query.StatusPredicate{Status: string(domain.StatusNotFoundInAlma)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", query.ErrInvalidQuery, filter)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
