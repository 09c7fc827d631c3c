package analyses

import (
	"context"
	"database/sql"
	"errors"

	"boneai-backend/internal/shared/storage/db"
)

// SQLRepo implements Repo on Postgres or MySQL.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const selectColumns = `id, user_id, task_id, task_name, result_text, image_url, created_at`

// Create inserts a new record.
func (r *SQLRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO analyses (id, user_id, task_id, task_name, result_text, image_url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	var imageURL sql.NullString
	if rec.ImageURL != nil {
		imageURL = sql.NullString{String: *rec.ImageURL, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, db.Rebind(r.Dialect, query),
		rec.ID,
		rec.UserID,
		rec.TaskID,
		rec.TaskName,
		rec.ResultText,
		imageURL,
		rec.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// GetByID returns a record by ID.
func (r *SQLRepo) GetByID(ctx context.Context, analysisID string) (Record, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses WHERE id = ? LIMIT 1`
	row := r.DB.QueryRowContext(ctx, db.Rebind(r.Dialect, query), analysisID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ListByUser returns a user's records, newest first.
func (r *SQLRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + selectColumns + ` FROM analyses WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, db.Rebind(r.Dialect, query), userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var imageURL sql.NullString
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.TaskID, &rec.TaskName, &rec.ResultText, &imageURL, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if imageURL.Valid {
		url := imageURL.String
		rec.ImageURL = &url
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

var _ Repo = (*SQLRepo)(nil)
