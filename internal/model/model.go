package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind enumerates message kinds.
type Kind string

const (
	KindText           Kind = "text"
	KindSystem         Kind = "system"
	KindToolUse        Kind = "tool_use"
	KindThreadBoundary Kind = "thread_boundary"
)

// Direction marks who initiated a message. The empty string means the
// adapter could not determine it.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionUnset    Direction = ""
)

// Author is a display name plus platform-native handle.
type Author struct {
	Name   string `json:"name,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// Source identifies where a message came from. Platform plus PlatformID is
// the deduplication key: the same pair always maps to the same message id.
type Source struct {
	Platform   string `json:"platform"`
	PlatformID string `json:"platform_id"`
}

// Tag is an ordered key-value annotation supplied by an adapter.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Message is the atomic unit of the store.
type Message struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	AccountID  string    `json:"account_id,omitempty"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Title      string    `json:"title,omitempty"`
	Author     Author    `json:"author"`
	Source     Source    `json:"source"`
	Direction  Direction `json:"direction,omitempty"`
	Tags       []Tag     `json:"tags,omitempty"`
	CreatedAt  int64     `json:"created_at"`
	ImportedAt int64     `json:"imported_at"`
}

// ThreadType enumerates conversation shapes.
type ThreadType string

const (
	ThreadDM      ThreadType = "dm"
	ThreadGroup   ThreadType = "group"
	ThreadChannel ThreadType = "channel"
)

// Thread is a conversation or channel. Threads are never deleted, only
// archived or muted.
type Thread struct {
	ID               string     `json:"id"`
	Title            string     `json:"title,omitempty"`
	Type             ThreadType `json:"type"`
	Platform         string     `json:"platform,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	IsArchived       bool       `json:"is_archived"`
	IsMuted          bool       `json:"is_muted"`
}

// Account is a counterpart identity. One account does not necessarily equal
// one human; cross-platform grouping for analytics uses normalized display
// names instead.
type Account struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Identities []Source `json:"identities,omitempty"`
}

// BlacklistEntry excludes a thread from analytics.
type BlacklistEntry struct {
	ThreadID string `json:"thread_id"`
	Name     string `json:"name,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Event op and entity names as stored in the event log.
const (
	OpUpsert      = "upsert"
	OpThreadState = "thread_state"

	EntityMessage = "message"
	EntityThread  = "thread"
	EntityAccount = "account"
)

// Event is the store's unit of truth: appended once, never mutated.
type Event struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Op        string          `json:"op"`
	Entity    string          `json:"entity"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

// ThreadStateChange is the payload of an OpThreadState event.
type ThreadStateChange struct {
	ThreadID string `json:"thread_id"`
	Field    string `json:"field"` // "archived" or "muted"
	Value    bool   `json:"value"`
}

// messageNamespace is the fixed UUID namespace for deterministic message ids.
var messageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sift:message"))

// MessageID derives the stable message id from a source. Re-importing the
// same platform event always yields the same id.
func MessageID(src Source) string {
	return uuid.NewSHA1(messageNamespace, []byte(src.Platform+"\x00"+src.PlatformID)).String()
}
