package request

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leleasley/lemedia/internal/media"
)

// Store provides access to request records.
type Store struct {
	db *sql.DB
}

// NewStore creates a request store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// mapSQLiteError converts SQLite errors to the package's sentinels.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check the message for constraint
	// violations.
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "CHECK constraint failed") {
		return ErrConstraint
	}
	return err
}

// activeStatuses are the states that still block a new request for the
// same subject.
var activeStatuses = []Status{StatusPending, StatusQueued, StatusSubmitted, StatusDownloading}

func activeStatusArgs() (string, []any) {
	marks := make([]string, len(activeStatuses))
	args := make([]any, len(activeStatuses))
	for i, s := range activeStatuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(marks, ", "), args
}

// CreateWithItems persists the record and all of its items in a single
// transaction. Assigns the record ID and timestamps; items inherit the
// record's status unless they carry their own.
func (s *Store) CreateWithItems(ctx context.Context, rec *Record, items []Item) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusPending
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requests (id, catalog_id, legacy_id, media_type, title, requested_by, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Subject.CatalogID, nullInt64(rec.Subject.LegacyID), string(rec.Subject.Type),
		rec.Subject.Title, rec.RequestedBy, string(rec.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", mapSQLiteError(err))
	}

	for i := range items {
		items[i].RequestID = rec.ID
		items[i].CreatedAt = now
		if items[i].Status == "" {
			items[i].Status = rec.Status
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO request_items (request_id, provider, provider_item_id, season_number, episode_number, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			items[i].RequestID, items[i].Provider, items[i].ProviderItemID,
			items[i].SeasonNumber, items[i].EpisodeNumber, string(items[i].Status), now,
		)
		if err != nil {
			return fmt.Errorf("insert request item: %w", mapSQLiteError(err))
		}
		items[i].ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit request: %w", err)
	}
	rec.Items = items
	return nil
}

// FindActive returns the active request covering the subject, or
// nil, nil when there is none.
func (s *Store) FindActive(ctx context.Context, catalogID int64, mt media.Type) (*Record, error) {
	marks, args := activeStatusArgs()
	query := fmt.Sprintf(`
		SELECT id, catalog_id, legacy_id, media_type, title, requested_by, status, created_at, updated_at
		FROM requests
		WHERE catalog_id = ? AND media_type = ? AND status IN (%s)
		ORDER BY created_at ASC
		LIMIT 1`, marks)
	args = append([]any{catalogID, string(mt)}, args...)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active request: %w", mapSQLiteError(err))
	}

	rec.Items, err = loadItems(ctx, s.db, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get retrieves a request with its items.
// Returns ErrNotFound if the request does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `
		SELECT id, catalog_id, legacy_id, media_type, title, requested_by, status, created_at, updated_at
		FROM requests WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", id, mapSQLiteError(err))
	}

	rec.Items, err = loadItems(ctx, s.db, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Filter narrows List. Nil fields match everything.
type Filter struct {
	Status      *Status
	RequestedBy *string
	Type        *media.Type
	Limit       int
	Offset      int
}

// List returns requests newest-first, with items attached.
func (s *Store) List(ctx context.Context, f Filter) ([]*Record, error) {
	var conditions []string
	var args []any

	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.RequestedBy != nil {
		conditions = append(conditions, "requested_by = ?")
		args = append(args, *f.RequestedBy)
	}
	if f.Type != nil {
		conditions = append(conditions, "media_type = ?")
		args = append(args, string(*f.Type))
	}

	query := `
		SELECT id, catalog_id, legacy_id, media_type, title, requested_by, status, created_at, updated_at
		FROM requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	for _, rec := range records {
		rec.Items, err = loadItems(ctx, s.db, rec.ID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Delete removes a request and its items.
// Returns ErrNotFound if the request does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM request_items WHERE request_id = ?`, id); err != nil {
		return fmt.Errorf("delete request items: %w", mapSQLiteError(err))
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete request: %w", mapSQLiteError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// UpdateStatus transitions a request to the given status.
// Returns ErrNotFound if the request does not exist.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE requests SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", mapSQLiteError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// QuotaStatus reports the user's standing against a rolling quota of
// limit requests per windowDays. Limit 0 disables the quota.
func (s *Store) QuotaStatus(ctx context.Context, user string, kind media.Type, limit, windowDays int) (QuotaStatus, error) {
	qs := QuotaStatus{Limit: limit, WindowDays: windowDays}
	if limit <= 0 {
		return qs, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM requests
		WHERE requested_by = ? AND media_type = ? AND created_at >= ?`,
		user, string(kind), cutoff,
	).Scan(&used)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("quota status: %w", mapSQLiteError(err))
	}

	qs.Remaining = limit - used
	if qs.Remaining < 0 {
		qs.Remaining = 0
	}
	return qs, nil
}

// ActiveEpisodeKeys returns the episode keys already covered by active
// requests for the series, so repeat submissions only request the
// delta.
func (s *Store) ActiveEpisodeKeys(ctx context.Context, catalogID int64) (map[string]bool, error) {
	marks, statusArgs := activeStatusArgs()
	query := fmt.Sprintf(`
		SELECT ri.season_number, ri.episode_number
		FROM request_items ri
		JOIN requests r ON r.id = ri.request_id
		WHERE r.catalog_id = ? AND r.media_type = 'tv' AND r.status IN (%s)
		  AND ri.season_number IS NOT NULL AND ri.episode_number IS NOT NULL`, marks)
	args := append([]any{catalogID}, statusArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("active episode keys: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]bool)
	for rows.Next() {
		var season, episode int
		if err := rows.Scan(&season, &episode); err != nil {
			return nil, fmt.Errorf("scan episode key: %w", err)
		}
		keys[EpisodeKey(season, episode)] = true
	}
	return keys, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var legacyID sql.NullInt64
	var mediaType, status string

	err := row.Scan(&rec.ID, &rec.Subject.CatalogID, &legacyID, &mediaType, &rec.Subject.Title,
		&rec.RequestedBy, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.Subject.LegacyID = legacyID.Int64
	rec.Subject.Type = media.Type(mediaType)
	rec.Status = Status(status)
	return &rec, nil
}

func loadItems(ctx context.Context, q querier, requestID string) ([]Item, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, request_id, provider, provider_item_id, season_number, episode_number, status, created_at
		FROM request_items WHERE request_id = ? ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request items: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		var providerItemID sql.NullString
		var season, episode sql.NullInt64
		var status string

		err := rows.Scan(&it.ID, &it.RequestID, &it.Provider, &providerItemID, &season, &episode, &status, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan request item: %w", err)
		}

		if providerItemID.Valid {
			it.ProviderItemID = &providerItemID.String
		}
		if season.Valid {
			n := int(season.Int64)
			it.SeasonNumber = &n
		}
		if episode.Valid {
			n := int(episode.Int64)
			it.EpisodeNumber = &n
		}
		it.Status = Status(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
