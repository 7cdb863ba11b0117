package llmtool

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"codelens/internal/artifact"
	"codelens/internal/util/jsonutil"
)

// ChatSystemInstruction frames the assistant for questions about the open
// project.
const ChatSystemInstruction = "You are a coding assistant embedded in a code editor. Answer questions about the " +
	"user's project concisely. Prefer concrete file paths and short code snippets. Say so when the project " +
	"context does not cover the question."

const transformSystemInstruction = "You are a careful code reviewer and refactoring assistant. Work only on the " +
	"code you are given and keep its language and style."

// TransformAction names one code transformation.
type TransformAction string

const (
	ActionComment      TransformAction = "comment"
	ActionBugs         TransformAction = "bugs"
	ActionOptimize     TransformAction = "optimize"
	ActionTests        TransformAction = "tests"
	ActionExplain      TransformAction = "explain"
	ActionDependencies TransformAction = "dependencies"
)

var ErrUnknownAction = errors.New("llmtool: unknown transform action")

type transformTemplate struct {
	purpose string
	format  string
	rules   []string
}

var transformTemplates = map[TransformAction]transformTemplate{
	ActionComment: {
		purpose: "Add clear comments to the code below.",
		format:  "The full code with comments added, in one fenced code block.",
		rules:   []string{"Do not change behavior.", "Comment intent and non-obvious constraints, not every line."},
	},
	ActionBugs: {
		purpose: "Find bugs in the code below.",
		format:  "A numbered list. Each item names the line or construct, the problem and a fix.",
		rules:   []string{"Only report real defects.", "Say \"No bugs found.\" when there are none."},
	},
	ActionOptimize: {
		purpose: "Optimize the code below for performance and readability.",
		format:  "The optimized code in one fenced code block, then a short list of the changes.",
		rules:   []string{"Keep the public behavior identical."},
	},
	ActionTests: {
		purpose: "Write unit tests for the code below.",
		format:  "Test code in one fenced code block.",
		rules:   []string{"Use the test framework most common for the language.", "Cover edge cases."},
	},
	ActionExplain: {
		purpose: "Explain what the code below does.",
		format:  "A short overview paragraph followed by a walkthrough of the main parts.",
	},
	ActionDependencies: {
		purpose: "List the external dependencies the code below uses.",
		format:  "A list of dependencies, each with what it is used for.",
		rules:   []string{"Include imports, required packages and services the code calls."},
	},
}

// TransformActions returns the supported actions in alphabetical order.
func TransformActions() []TransformAction {
	out := make([]TransformAction, 0, len(transformTemplates))
	for a := range transformTemplates {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseTransformAction accepts an action name in any case.
func ParseTransformAction(s string) (TransformAction, error) {
	a := TransformAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transformTemplates[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// BuildTransformRequest composes the prompt for running action over code.
func BuildTransformRequest(action TransformAction, code, language string) (AnalysisRequest, error) {
	tpl, ok := transformTemplates[action]
	if !ok {
		return AnalysisRequest{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if strings.TrimSpace(code) == "" {
		return AnalysisRequest{}, errors.New("llmtool: code is empty")
	}
	lang := strings.TrimSpace(language)
	background := "The language was not stated; infer it from the code."
	if lang != "" {
		background = "The code is written in " + lang + "."
	}
	msg := renderSections(StructuredPromptSpec{
		Purpose:      tpl.purpose,
		Background:   background,
		Input:        "```" + lang + "\n" + strings.TrimRight(code, "\n") + "\n```",
		Rules:        tpl.rules,
		OutputFormat: tpl.format,
	})
	return AnalysisRequest{System: transformSystemInstruction, Message: msg}, nil
}

// ChatContext describes the project for chat turns. It is empty when
// nothing has been learned yet.
func ChatContext(st *artifact.ProjectState) string {
	if st == nil || st.CodebaseIndex == nil {
		return ""
	}
	doc, err := jsonutil.MarshalNoEscapeIndent(st.CodebaseIndex, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Project root: %s\nCodebase analysis:\n%s", st.ProjectPath, doc)
}
