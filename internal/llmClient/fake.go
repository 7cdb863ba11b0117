package llmclient

import (
	"context"
	"strings"
)

// FakeAnalysisReply is what FakeClient answers to an analysis prompt.
const FakeAnalysisReply = "```json\n" + `{
  "summary": "Offline analysis placeholder. Set a real model credential for a full analysis.",
  "keyComponents": [],
  "coreFunctionality": []
}` + "\n```"

// FakeClient returns deterministic replies for offline runs and tests.
type FakeClient struct {
	// Reply overrides the canned answers when set.
	Reply func(req GenerateRequest) (string, error)
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Reply != nil {
		return f.Reply(req)
	}
	if strings.Contains(req.Message, "coreFunctionality") {
		return FakeAnalysisReply, nil
	}
	return "Offline reply: " + firstLine(req.Message), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
