package model

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is a conversation thread bound to one document. Deleting a
// session cascades to its messages.
type ChatSession struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	DocumentID string    `json:"document_id" gorm:"type:varchar(26);index;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Messages []ChatMessage `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for ChatSession.
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage is one turn in a session, ordered by creation time.
type ChatMessage struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID string `json:"session_id" gorm:"type:varchar(26);index;not null"`
	Role      string `json:"role" gorm:"type:varchar(16);not null"`
	Content   string `json:"content" gorm:"type:text;not null"`
	// ContextSnapshot is a JSON array of SnapshotEntry recording the top
	// retrieved chunks behind an assistant message. Kept for audit, never
	// re-read by the pipeline. Empty for user messages.
	ContextSnapshot string    `json:"context_snapshot,omitempty" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for ChatMessage.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// SessionInfo is the listing view of a session: the session plus the
// filename of the document it is bound to.
type SessionInfo struct {
	*ChatSession
	DocumentFilename string `json:"document_filename"`
}

// SnapshotEntry is one retrieved chunk recorded on an assistant message:
// truncated text plus the similarity score that selected it.
type SnapshotEntry struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// ChatResult is the orchestrator's answer to one user message.
type ChatResult struct {
	Answer string `json:"answer"`
	// Sources is the snapshot persisted with the assistant message.
	Sources []SnapshotEntry `json:"sources,omitempty"`
	// Elapsed is the total orchestration time.
	Elapsed time.Duration `json:"-"`
}
