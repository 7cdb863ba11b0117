package codebase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"codelens/internal/artifact"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/runner"
)

const validDoc = `{"summary":"A todo app.","keyComponents":[{"name":"api","path":"src/api.ts","description":"HTTP routes"}],"coreFunctionality":[{"name":"sync","path":"src/sync.ts","description":"Offline sync"}]}`

func TestInterpretIsIdempotentOnValidJSON(t *testing.T) {
	got := Interpret(validDoc, nil)
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, validDoc, string(b))

	again := Interpret(string(b), nil)
	assert.Equal(t, got, again)
}

func TestInterpretFallsBackOnProse(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	got, ok := TryInterpret("I couldn't analyze this.", zap.New(core))
	assert.False(t, ok)
	assert.Equal(t, artifact.FallbackAnalysis(), got)
	assert.NotEmpty(t, got.Summary)
	assert.Empty(t, got.KeyComponents)
	assert.Empty(t, got.CoreFunctionality)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "I couldn't analyze this.", entries[0].ContextMap()["reply"])
}

func TestInterpretExtractsJSONFenceWithTrailingProse(t *testing.T) {
	raw := "Here is the analysis:\n```json\n" + validDoc + "\n```\nLet me know if you want {more} detail."
	got, ok := TryInterpret(raw, nil)
	require.True(t, ok)
	assert.Equal(t, "A todo app.", got.Summary)
	require.Len(t, got.KeyComponents, 1)
	assert.Equal(t, "src/api.ts", got.KeyComponents[0].Path)
}

func TestInterpretCandidateOrder(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		summary string
	}{
		{
			name:    "unlabelled fence",
			raw:     "```\n" + validDoc + "\n```",
			summary: "A todo app.",
		},
		{
			name:    "braces inside prose",
			raw:     "Sure! " + validDoc + " Hope that helps.",
			summary: "A todo app.",
		},
		{
			name:    "greedy span across two objects",
			raw:     "```json\n{\"summary\": \"\"}\n```\nActually: " + `{"summary":"second","keyComponents":[],"coreFunctionality":[]}`,
			summary: artifact.FallbackSummary,
		},
		{
			name:    "string encoded document",
			raw:     `"{\"summary\":\"quoted\",\"keyComponents\":[],\"coreFunctionality\":[]}"`,
			summary: "quoted",
		},
		{
			name:    "missing arrays",
			raw:     `{"summary":"x"}`,
			summary: artifact.FallbackSummary,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.summary, Interpret(tt.raw, nil).Summary)
		})
	}
}

type fakeGateway struct {
	reply string
	err   error
	got   llmclient.GenerateRequest
}

func (f *fakeGateway) Generate(_ context.Context, req llmclient.GenerateRequest) (string, error) {
	f.got = req
	return f.reply, f.err
}

func projectDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.ts"), []byte("export {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x", "i.js"), []byte("x"), 0o644))
	return root
}

func runLearner(l *Learner, in LearnIn) ([]runner.RunEvent, runner.RunEvent) {
	ch := runner.Start(context.Background(), "learn", 8, func(ctx context.Context) (any, error) {
		return l.Run(ctx, in)
	})
	var events []runner.RunEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events[:len(events)-1], events[len(events)-1]
}

func TestLearnerRunEmitsProgressInOrder(t *testing.T) {
	root := projectDir(t)
	gw := &fakeGateway{reply: "```json\n" + validDoc + "\n```"}
	l := &Learner{LLM: gw}

	progress, last := runLearner(l, LearnIn{Root: root, Provider: llmclient.ProviderGemini, Credential: "k"})
	require.Equal(t, runner.EventTypeComplete, last.Type)
	got, ok := last.Result.(artifact.CodebaseAnalysis)
	require.True(t, ok)
	assert.Equal(t, "A todo app.", got.Summary)

	var values []int32
	for _, ev := range progress {
		values = append(values, ev.Progress)
	}
	assert.Equal(t, []int32{ProgressScanned, ProgressSampled, ProgressRequested, ProgressInterpreted}, values)
	assert.Equal(t, "Collected 1 source samples", progress[1].Message)

	assert.Equal(t, llmclient.ProviderGemini, gw.got.Provider)
	assert.Equal(t, "k", gw.got.Credential)
	require.Len(t, gw.got.History, 1)
	assert.Equal(t, llmclient.RoleSystem, gw.got.History[0].Role)
	assert.Contains(t, gw.got.Message, "File: src/index.ts")
	assert.NotContains(t, gw.got.Message, "node_modules")
}

func TestLearnerRunPropagatesGatewayError(t *testing.T) {
	root := projectDir(t)
	modelErr := &llmclient.ModelError{Provider: llmclient.ProviderGroq, Err: errors.New("quota exceeded")}
	l := &Learner{LLM: &fakeGateway{err: modelErr}}

	progress, last := runLearner(l, LearnIn{Root: root})
	assert.Equal(t, runner.EventTypeError, last.Type)
	assert.ErrorIs(t, last.Err, modelErr)
	assert.Contains(t, last.Message, "quota exceeded")
	assert.Len(t, progress, 3, "stops after the request checkpoint")
}

func TestLearnerRunFailsOnMissingRoot(t *testing.T) {
	l := &Learner{LLM: &fakeGateway{reply: validDoc}}
	progress, last := runLearner(l, LearnIn{Root: filepath.Join(t.TempDir(), "gone")})
	assert.Empty(t, progress)
	assert.Equal(t, runner.EventTypeError, last.Type)
	assert.True(t, strings.HasPrefix(last.Message, "scan: "))
}

func TestLearnerRunDegradesOnUnparseableReply(t *testing.T) {
	root := projectDir(t)
	l := &Learner{LLM: &fakeGateway{reply: "no idea"}}
	_, last := runLearner(l, LearnIn{Root: root})
	require.Equal(t, runner.EventTypeComplete, last.Type)
	assert.Equal(t, artifact.FallbackAnalysis(), last.Result)
}
