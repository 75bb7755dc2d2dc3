package store

// EventLog is an append-only usage event. Rows are never updated or deleted
// through the store API.
type EventLog struct {
	ID        int64
	CreatorID int32
	Type      string
	Payload   string // JSON string
	CreatedTs int64
}

type FindEventLog struct {
	CreatorID *int32
	Type      *string
	Limit     *int
}
