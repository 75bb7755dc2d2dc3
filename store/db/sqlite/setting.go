package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/muhandis-ai/muhandis/store"
)

func (d *DB) UpsertUserSetting(ctx context.Context, upsert *store.UpsertUserSetting) (*store.UserSetting, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO user_setting (user_id, settings, created_ts, updated_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET settings = EXCLUDED.settings, updated_ts = EXCLUDED.updated_ts
		RETURNING user_id, settings, created_ts, updated_ts`

	var setting store.UserSetting
	if err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, upsert.Settings, now, now).Scan(
		&setting.UserID,
		&setting.Settings,
		&setting.CreatedTs,
		&setting.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert user setting: %w", err)
	}

	return &setting, nil
}

func (d *DB) GetUserSetting(ctx context.Context, find *store.FindUserSetting) (*store.UserSetting, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user id is required")
	}

	var setting store.UserSetting
	err := d.db.QueryRowContext(ctx,
		"SELECT user_id, settings, created_ts, updated_ts FROM user_setting WHERE user_id = ?",
		*find.UserID,
	).Scan(
		&setting.UserID,
		&setting.Settings,
		&setting.CreatedTs,
		&setting.UpdatedTs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user setting: %w", err)
	}

	return &setting, nil
}
