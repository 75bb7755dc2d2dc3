package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhandis-ai/muhandis/store"
)

func (d *DB) CreateThread(ctx context.Context, create *store.Thread) (*store.Thread, error) {
	fields := []string{"uid", "creator_id", "title", "mode", "starred", "last_message"}
	placeholderValues := []any{
		create.UID, create.CreatorID, create.Title, create.Mode, create.Starred, create.LastMessage,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}
	if create.RowStatus != "" {
		fields = append(fields, "row_status")
		placeholderValues = append(placeholderValues, create.RowStatus)
	}

	stmt := `INSERT INTO thread (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts, row_status`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.RowStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	return create, nil
}

func (d *DB) ListThreads(ctx context.Context, find *store.FindThread) ([]*store.Thread, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "thread.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "thread.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "thread.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Starred; v != nil {
		where, args = append(where, "thread.starred = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.RowStatus; v != nil {
		where, args = append(where, "thread.row_status = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, creator_id, title, mode, starred, last_message,
			created_ts, updated_ts, row_status
		FROM thread
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY thread.updated_ts DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Thread, 0)
	for rows.Next() {
		var thread store.Thread
		if err := rows.Scan(
			&thread.ID,
			&thread.UID,
			&thread.CreatorID,
			&thread.Title,
			&thread.Mode,
			&thread.Starred,
			&thread.LastMessage,
			&thread.CreatedTs,
			&thread.UpdatedTs,
			&thread.RowStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		list = append(list, &thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateThread(ctx context.Context, update *store.UpdateThread) (*store.Thread, error) {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Mode; v != nil {
		set, args = append(set, "mode = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Starred; v != nil {
		set, args = append(set, "starred = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastMessage; v != nil {
		set, args = append(set, "last_message = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update for thread %d", update.ID)
	}

	args = append(args, update.ID)
	stmt := `UPDATE thread SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, creator_id, title, mode, starred, last_message, created_ts, updated_ts, row_status`

	var thread store.Thread
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&thread.ID,
		&thread.UID,
		&thread.CreatorID,
		&thread.Title,
		&thread.Mode,
		&thread.Starred,
		&thread.LastMessage,
		&thread.CreatedTs,
		&thread.UpdatedTs,
		&thread.RowStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}

	return &thread, nil
}

func (d *DB) DeleteThread(ctx context.Context, delete *store.DeleteThread) error {
	// Messages cascade via the foreign key.
	if _, err := d.db.ExecContext(ctx, "DELETE FROM thread WHERE id = ?", delete.ID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
