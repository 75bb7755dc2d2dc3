package store

// ThreadMode is the conversation mode a thread was created in.
type ThreadMode string

const (
	ThreadModeChat       ThreadMode = "CHAT"
	ThreadModeResearch   ThreadMode = "RESEARCH"
	ThreadModeImage      ThreadMode = "IMAGE"
	ThreadModeAgent      ThreadMode = "AGENT"
	ThreadModeConnectors ThreadMode = "CONNECTORS"
)

func (m ThreadMode) String() string {
	return string(m)
}

type Thread struct {
	ID          int32
	UID         string
	CreatorID   int32
	Title       string
	Mode        ThreadMode
	Starred     bool
	LastMessage string
	CreatedTs   int64
	UpdatedTs   int64
	RowStatus   RowStatus
}

type FindThread struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	Starred   *bool
	RowStatus *RowStatus
	Limit     *int
	Offset    *int
}

type UpdateThread struct {
	ID          int32
	Title       *string
	Mode        *ThreadMode
	Starred     *bool
	LastMessage *string
	RowStatus   *RowStatus
	UpdatedTs   *int64
}

type DeleteThread struct {
	ID int32
}
