package store

// MessageRole is the author role of a message row.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
)

type Message struct {
	ID       int32
	UID      string
	ThreadID int32
	Role     MessageRole
	Content  string
	// Payload carries attachments, citations and generated images as a JSON string.
	Payload   string
	CreatedTs int64
}

type FindMessage struct {
	ID       *int32
	UID      *string
	ThreadID *int32
	Limit    *int
}

type DeleteMessage struct {
	ID       *int32
	ThreadID *int32
}
