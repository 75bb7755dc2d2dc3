package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Thread model related methods.
	CreateThread(ctx context.Context, create *Thread) (*Thread, error)
	ListThreads(ctx context.Context, find *FindThread) ([]*Thread, error)
	UpdateThread(ctx context.Context, update *UpdateThread) (*Thread, error)
	DeleteThread(ctx context.Context, delete *DeleteThread) error

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	DeleteMessage(ctx context.Context, delete *DeleteMessage) error

	// UserSetting model related methods.
	UpsertUserSetting(ctx context.Context, upsert *UpsertUserSetting) (*UserSetting, error)
	GetUserSetting(ctx context.Context, find *FindUserSetting) (*UserSetting, error)

	// EventLog model related methods. The event log is append-only.
	CreateEventLog(ctx context.Context, create *EventLog) (*EventLog, error)
	ListEventLogs(ctx context.Context, find *FindEventLog) ([]*EventLog, error)
}
