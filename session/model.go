package session

import "time"

// Mode is the conversation mode of a thread.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeResearch   Mode = "research"
	ModeImage      Mode = "image"
	ModeAgent      Mode = "agent"
	ModeConnectors Mode = "connectors"
)

// Valid reports whether m is a member of the closed mode enumeration.
func (m Mode) Valid() bool {
	switch m {
	case ModeChat, ModeResearch, ModeImage, ModeAgent, ModeConnectors:
		return true
	}
	return false
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Lang is the composer input language.
type Lang string

const (
	LangEn Lang = "en"
	LangAr Lang = "ar"
)

// Thread is a conversation container. MessageCount and LastMessage are
// denormalized from the message log and kept in sync by the store.
type Thread struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Mode         Mode      `json:"mode"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsStarred    bool      `json:"isStarred"`
	IsArchived   bool      `json:"isArchived"`
	MessageCount int       `json:"messageCount"`
	LastMessage  string    `json:"lastMessage"`
}

// Attachment is a file reference carried by a message or pending in the
// composer.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Citation is a source reference attached to an assistant message.
type Citation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// GeneratedImage is an image produced during generation.
type GeneratedImage struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// Message is one turn in a thread. Content stays mutable while IsStreaming is
// true; Error is set only when generation terminates abnormally.
type Message struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"threadId"`
	Role        Role             `json:"role"`
	Content     string           `json:"content"`
	Timestamp   time.Time        `json:"timestamp"`
	Mode        Mode             `json:"mode"`
	Attachments []Attachment     `json:"attachments,omitempty"`
	Citations   []Citation       `json:"citations,omitempty"`
	Images      []GeneratedImage `json:"images,omitempty"`
	IsStreaming bool             `json:"isStreaming"`
	Error       string           `json:"error,omitempty"`
}

// VoiceState is the composer's recording sub-state.
type VoiceState struct {
	IsRecording     bool   `json:"isRecording"`
	DurationSeconds int    `json:"durationSeconds"`
	Transcript      string `json:"transcript"`
}

// Composer is the transient draft state. It is never persisted.
type Composer struct {
	Text      string       `json:"text"`
	Files     []Attachment `json:"files"`
	Voice     *VoiceState  `json:"voice,omitempty"`
	Lang      Lang         `json:"lang"`
	Translate bool         `json:"translate"`
}

// Settings holds persisted user preferences.
type Settings struct {
	RTL           bool    `json:"rtl"`
	Hijri         bool    `json:"hijri"`
	VoiceEnabled  bool    `json:"voiceEnabled"`
	AutoTranslate bool    `json:"autoTranslate"`
	Temperature   float64 `json:"temperature"`
}

func defaultComposer() Composer {
	return Composer{Lang: LangEn}
}

func defaultSettings() Settings {
	return Settings{Temperature: 0.7}
}
