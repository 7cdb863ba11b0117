// Package codebase holds the learning worker: scan a project, sample its
// sources, ask the model for an analysis and interpret the reply.
package codebase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"codelens/internal/artifact"
	llmclient "codelens/internal/llmClient"
	"codelens/internal/llmtool"
	"codelens/internal/runner"
	"codelens/internal/scan"
)

// Progress checkpoints emitted by Learner.Run.
const (
	ProgressScanned     int32 = 20
	ProgressSampled     int32 = 45
	ProgressRequested   int32 = 70
	ProgressInterpreted int32 = 90
)

// LearnIn names the project and the model to use.
type LearnIn struct {
	Root       string
	Provider   llmclient.Provider
	Credential string
}

type Learner struct {
	LLM     llmclient.Gateway
	Samples scan.SampleOptions
	// Ignore replaces scan.DefaultIgnore when non-nil.
	Ignore []string
	Logger *zap.Logger
}

// Run executes scan, sample, prompt, call and interpret in order, emitting a
// progress event through runner.EmitterFrom(ctx) after each step. Only a
// root scan failure or a model failure is returned; an unusable reply
// degrades to the fallback analysis.
func (l *Learner) Run(ctx context.Context, in LearnIn) (artifact.CodebaseAnalysis, error) {
	if l.LLM == nil {
		return artifact.CodebaseAnalysis{}, errors.New("codebase: no model gateway")
	}
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("root", in.Root))
	em := runner.EmitterFrom(ctx)

	tree, err := scan.Tree(in.Root, scan.TreeOptions{Ignore: l.Ignore, Logger: log})
	if err != nil {
		return artifact.CodebaseAnalysis{}, err
	}
	em.EmitProgress(ProgressScanned, "Scanned project tree")

	opts := l.Samples
	opts.Logger = log
	previews, err := scan.SelectSamples(ctx, tree, in.Root, opts)
	if err != nil {
		return artifact.CodebaseAnalysis{}, fmt.Errorf("sample: %w", err)
	}
	em.EmitProgress(ProgressSampled, fmt.Sprintf("Collected %d source samples", len(previews)))

	req, err := llmtool.BuildAnalysisRequest(in.Root, previews)
	if err != nil {
		return artifact.CodebaseAnalysis{}, err
	}
	em.EmitProgress(ProgressRequested, "Waiting for the model")
	reply, err := l.LLM.Generate(ctx, llmclient.GenerateRequest{
		Message:    req.Message,
		History:    []llmclient.Message{{Role: llmclient.RoleSystem, Content: req.System}},
		Provider:   in.Provider,
		Credential: in.Credential,
	})
	if err != nil {
		return artifact.CodebaseAnalysis{}, err
	}

	analysis := Interpret(reply, log)
	em.EmitProgress(ProgressInterpreted, "Interpreted model response")
	log.Info("codebase analysis ready",
		zap.Int("samples", len(previews)),
		zap.Int("key_components", len(analysis.KeyComponents)),
		zap.Int("core_functionality", len(analysis.CoreFunctionality)))
	return analysis, nil
}
