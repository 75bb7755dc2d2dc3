package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/muhandis-ai/muhandis/store"
)

func (d *DB) CreateEventLog(ctx context.Context, create *store.EventLog) (*store.EventLog, error) {
	fields := []string{"creator_id", "type", "payload"}
	placeholderValues := []any{create.CreatorID, create.Type, create.Payload}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO event_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return create, nil
}

func (d *DB) ListEventLogs(ctx context.Context, find *store.FindEventLog) ([]*store.EventLog, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.CreatorID; v != nil {
		where, args = append(where, "event_log.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "event_log.type = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, creator_id, type, payload, created_ts
		FROM event_log
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY event_log.id DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event logs: %w", err)
	}
	defer rows.Close()

	list := make([]*store.EventLog, 0)
	for rows.Next() {
		var event store.EventLog
		if err := rows.Scan(
			&event.ID,
			&event.CreatorID,
			&event.Type,
			&event.Payload,
			&event.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event log: %w", err)
		}
		list = append(list, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event logs: %w", err)
	}

	return list, nil
}
