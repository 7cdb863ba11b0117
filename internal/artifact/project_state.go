package artifact

import (
	"strings"
	"time"
)

// ChatRole is the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one persisted chat turn.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectState is the document kept by the project store. It is written
// whole on every save.
type ProjectState struct {
	ProjectPath   string            `json:"projectPath"`
	CodebaseIndex *CodebaseAnalysis `json:"codebaseIndex,omitempty"`
	ChatHistory   []ChatMessage     `json:"chatHistory"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// NormalizeState trims the project path and replaces nil collections.
func NormalizeState(st ProjectState) ProjectState {
	st.ProjectPath = strings.TrimSpace(st.ProjectPath)
	if st.ChatHistory == nil {
		st.ChatHistory = []ChatMessage{}
	}
	if st.CodebaseIndex != nil {
		a := st.CodebaseIndex.Normalize()
		st.CodebaseIndex = &a
	}
	return st
}
