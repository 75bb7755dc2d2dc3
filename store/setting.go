package store

// UserSetting represents per-user chat settings.
type UserSetting struct {
	UserID    int32
	Settings  string // JSON string
	CreatedTs int64
	UpdatedTs int64
}

// FindUserSetting specifies the conditions for finding user settings.
type FindUserSetting struct {
	UserID *int32
}

// UpsertUserSetting specifies the data for upserting user settings.
type UpsertUserSetting struct {
	UserID   int32
	Settings string // JSON string
}
