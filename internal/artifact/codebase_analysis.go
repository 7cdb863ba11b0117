package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FallbackSummary is the summary stored when a model reply cannot be
// interpreted as a CodebaseAnalysis.
const FallbackSummary = "The codebase was scanned, but the AI response could not be parsed into a structured analysis. Try running the analysis again."

// ErrInvalidShape reports a document that parsed as JSON but does not match
// the CodebaseAnalysis shape.
var ErrInvalidShape = errors.New("artifact: invalid codebase analysis shape")

// Component names one part of the analyzed project.
type Component struct {
	Name        string `json:"name" prompt_desc:"Short component or feature name."`
	Path        string `json:"path" prompt_desc:"Project-relative path of the file or directory."`
	Description string `json:"description" prompt_desc:"One or two sentences on what it does."`
}

// CodebaseAnalysis is the persisted result of a learning run.
type CodebaseAnalysis struct {
	Summary           string      `json:"summary" prompt_desc:"Purpose and architecture of the project in a few sentences."`
	KeyComponents     []Component `json:"keyComponents" prompt_type:"[]{name,path,description}" prompt_desc:"Most important modules, packages or files."`
	CoreFunctionality []Component `json:"coreFunctionality" prompt_type:"[]{name,path,description}" prompt_desc:"Main features and where they are implemented."`
}

// MarshalJSON always emits both component arrays, never null.
func (a CodebaseAnalysis) MarshalJSON() ([]byte, error) {
	type plain CodebaseAnalysis
	return json.Marshal(plain(a.Normalize()))
}

// Normalize replaces nil component slices with empty ones.
func (a CodebaseAnalysis) Normalize() CodebaseAnalysis {
	if a.KeyComponents == nil {
		a.KeyComponents = []Component{}
	}
	if a.CoreFunctionality == nil {
		a.CoreFunctionality = []Component{}
	}
	return a
}

// FallbackAnalysis is the degraded result used when parsing fails.
func FallbackAnalysis() CodebaseAnalysis {
	return CodebaseAnalysis{
		Summary:           FallbackSummary,
		KeyComponents:     []Component{},
		CoreFunctionality: []Component{},
	}
}

// ValidateCodebaseAnalysis checks a decoded JSON value (as produced by
// json.Unmarshal into an any) against the CodebaseAnalysis shape and
// converts it. Item fields that are absent or null decode as empty strings.
func ValidateCodebaseAnalysis(doc any) (CodebaseAnalysis, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return CodebaseAnalysis{}, fmt.Errorf("%w: document is %s, want object", ErrInvalidShape, jsonKind(doc))
	}

	rawSummary, ok := obj["summary"]
	if !ok {
		return CodebaseAnalysis{}, fmt.Errorf("%w: summary is missing", ErrInvalidShape)
	}
	summary, ok := rawSummary.(string)
	if !ok {
		return CodebaseAnalysis{}, fmt.Errorf("%w: summary is %s, want string", ErrInvalidShape, jsonKind(rawSummary))
	}
	if strings.TrimSpace(summary) == "" {
		return CodebaseAnalysis{}, fmt.Errorf("%w: summary is empty", ErrInvalidShape)
	}

	key, err := componentsField(obj, "keyComponents")
	if err != nil {
		return CodebaseAnalysis{}, err
	}
	core, err := componentsField(obj, "coreFunctionality")
	if err != nil {
		return CodebaseAnalysis{}, err
	}
	return CodebaseAnalysis{Summary: summary, KeyComponents: key, CoreFunctionality: core}, nil
}

func componentsField(obj map[string]any, field string) ([]Component, error) {
	raw, ok := obj[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing", ErrInvalidShape, field)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s, want array", ErrInvalidShape, field, jsonKind(raw))
	}
	out := make([]Component, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %s, want object", ErrInvalidShape, field, i, jsonKind(item))
		}
		var c Component
		for _, f := range []struct {
			key string
			dst *string
		}{
			{"name", &c.Name},
			{"path", &c.Path},
			{"description", &c.Description},
		} {
			v, present := m[f.key]
			if !present || v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d].%s is %s, want string", ErrInvalidShape, field, i, f.key, jsonKind(v))
			}
			*f.dst = s
		}
		out = append(out, c)
	}
	return out, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
