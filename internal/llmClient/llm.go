// Package llmclient is the model gateway: it turns a message plus chat
// history into free-form text from one of the supported providers.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// GenerateRequest is everything a provider needs for one call.
type GenerateRequest struct {
	Message    string
	History    []Message
	Provider   Provider
	Credential string
	// Context is optional background text placed ahead of Message.
	Context string
}

// Gateway returns a model's reply for req.
type Gateway interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Client is a gateway bound to one provider and credential. Middleware wraps
// Clients.
type Client interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Close() error
}

var (
	ErrNoCredential = errors.New("no model credential configured")
	ErrEmptyReply   = errors.New("empty reply from model")
)

// ModelError wraps any failure of a provider call.
type ModelError struct {
	Provider Provider
	Err      error
}

func (e *ModelError) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }
func (e *ModelError) Unwrap() error { return e.Err }

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Credentials holds the caller's provider secrets.
type Credentials struct {
	Gemini string
	Groq   string
}

// Select picks the provider to use. Gemini wins when both keys are set.
func (c Credentials) Select() (Provider, string, error) {
	if k := strings.TrimSpace(c.Gemini); k != "" {
		return ProviderGemini, k, nil
	}
	if k := strings.TrimSpace(c.Groq); k != "" {
		return ProviderGroq, k, nil
	}
	return "", "", ErrNoCredential
}

// Configured reports whether any credential is present.
func (c Credentials) Configured() bool {
	_, _, err := c.Select()
	return err == nil
}

// splitSystem separates system turns from the rest of the history.
func splitSystem(history []Message) (string, []Message) {
	var sys []string
	rest := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == RoleSystem {
			if s := strings.TrimSpace(m.Content); s != "" {
				sys = append(sys, s)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}

// userText is the final user turn: optional context, then the message.
func userText(req GenerateRequest) string {
	if strings.TrimSpace(req.Context) == "" {
		return req.Message
	}
	return "[CONTEXT]\n" + strings.TrimSpace(req.Context) + "\n\n[MESSAGE]\n" + req.Message
}
