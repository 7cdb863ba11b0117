package codebase

import (
	"go.uber.org/zap"

	"codelens/internal/artifact"
	"codelens/internal/llmtool"
	"codelens/internal/util/jsonutil"
)

// maxLoggedReply bounds how much of a rejected reply is logged.
const maxLoggedReply = 4096

// Interpret turns a free-form model reply into a CodebaseAnalysis. The first
// candidate from llmtool.JSONCandidates that decodes and passes
// artifact.ValidateCodebaseAnalysis wins. When none does, the rejected reply
// is logged and FallbackAnalysis is returned; Interpret never fails.
func Interpret(raw string, logger *zap.Logger) artifact.CodebaseAnalysis {
	a, ok := TryInterpret(raw, logger)
	if !ok {
		return artifact.FallbackAnalysis()
	}
	return a
}

// TryInterpret is Interpret that also reports whether a candidate matched.
func TryInterpret(raw string, logger *zap.Logger) (artifact.CodebaseAnalysis, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	candidates := llmtool.JSONCandidates(raw)
	var lastErr error
	for i, c := range candidates {
		var doc any
		if err := jsonutil.UnmarshalFlex([]byte(c), &doc); err != nil {
			lastErr = err
			continue
		}
		if s, ok := doc.(string); ok {
			// A document encoded as a JSON string.
			if err := jsonutil.UnmarshalFlex([]byte(s), &doc); err != nil {
				lastErr = err
				continue
			}
		}
		a, err := artifact.ValidateCodebaseAnalysis(doc)
		if err != nil {
			lastErr = err
			continue
		}
		logger.Debug("model reply interpreted", zap.Int("candidate", i), zap.Int("candidates", len(candidates)))
		return a, true
	}

	logged := raw
	if len(logged) > maxLoggedReply {
		logged = logged[:maxLoggedReply]
	}
	logger.Warn("model reply did not match the analysis shape; using fallback",
		zap.Int("candidates", len(candidates)),
		zap.Int("reply_bytes", len(raw)),
		zap.NamedError("last_error", lastErr),
		zap.String("reply", logged))
	return artifact.FallbackAnalysis(), false
}
