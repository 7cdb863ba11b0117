package llmtool

import (
	"fmt"
	"strings"

	"codelens/internal/artifact"
	"codelens/internal/scan"
)

// AnalysisSystemInstruction frames the model for codebase analysis.
const AnalysisSystemInstruction = "You are a senior software architect. You read source excerpts and describe " +
	"what a codebase does. Reply with one JSON object that has the fields summary, keyComponents and " +
	"coreFunctionality. Do not wrap it in prose."

// AnalysisRequest is the outbound message for one learning run.
type AnalysisRequest struct {
	System  string
	Message string
}

var analysisFields = MustFieldsFromStruct(artifact.CodebaseAnalysis{})

const analysisExample = `{
  "summary": "A command line tool that converts Markdown files to HTML.",
  "keyComponents": [
    {"name": "cli", "path": "cmd/md2html/main.go", "description": "Parses flags and drives conversion."}
  ],
  "coreFunctionality": [
    {"name": "rendering", "path": "internal/render", "description": "Turns the Markdown AST into HTML."}
  ]
}`

// BuildAnalysisRequest composes the analysis prompt for previews taken from
// root. It does no I/O.
func BuildAnalysisRequest(root string, previews []scan.FilePreview) (AnalysisRequest, error) {
	spec := StructuredPromptSpec{
		Purpose: fmt.Sprintf("Analyze the codebase at %s. Summarize its purpose and architecture "+
			"and name its key components and core functionality.", root),
		Background:   fmt.Sprintf("%d sampled files follow. Each is cut to its first lines.", len(previews)),
		Input:        formatPreviews(previews),
		OutputFields: analysisFields,
		Rules: []string{
			"Each item in keyComponents and coreFunctionality is an object {name, path, description}.",
			"Use project-relative paths.",
		},
		OutputFormat: "JSON object with summary (string), keyComponents (array) and coreFunctionality (array).",
		Example:      analysisExample,
	}
	spec = ApplyPresets(spec, PresetStrictJSON(), PresetNoInvent(), PresetCautious())
	msg, err := RenderStructuredPrompt(spec)
	if err != nil {
		return AnalysisRequest{}, err
	}
	return AnalysisRequest{System: AnalysisSystemInstruction, Message: msg}, nil
}

func formatPreviews(previews []scan.FilePreview) string {
	if len(previews) == 0 {
		return "(no source files were found)"
	}
	var b strings.Builder
	for _, p := range previews {
		text := strings.TrimRight(p.PreviewText, "\n")
		fence := fenceFor(text)
		fmt.Fprintf(&b, "File: %s\n%s\n%s\n%s\n\n", p.RelativePath, fence, text, fence)
	}
	return strings.TrimRight(b.String(), "\n")
}

// fenceFor returns a backtick fence longer than any backtick run in text.
func fenceFor(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r != '`' {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return strings.Repeat("`", max(3, longest+1))
}
