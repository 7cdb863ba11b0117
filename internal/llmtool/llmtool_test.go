package llmtool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codelens/internal/scan"
)

func TestRenderStructuredPrompt_SectionsInOrder(t *testing.T) {
	out, err := RenderStructuredPrompt(StructuredPromptSpec{
		Purpose:      "Summarize.",
		Background:   "Two files.",
		Input:        "File: a.go",
		OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true, Description: "Short."}},
		Constraints:  []string{"No prose."},
		Rules:        []string{"Be brief.", "  "},
		OutputFormat: "JSON only.",
		Example:      `{"summary":"x"}`,
	})
	require.NoError(t, err)

	order := []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[OUTPUT]", "[CONSTRAINTS]", "[RULES]", "[OUTPUT_FORMAT]", "[EXAMPLE]"}
	last := -1
	for _, sec := range order {
		idx := strings.Index(out, sec)
		require.GreaterOrEqual(t, idx, 0, "missing %s", sec)
		assert.Greater(t, idx, last, "%s out of order", sec)
		last = idx
	}
	assert.Contains(t, out, "- summary (string, required): Short.")
	assert.Contains(t, out, "- Be brief.\n\n")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRenderStructuredPrompt_SkipsEmptySections(t *testing.T) {
	out, err := RenderStructuredPrompt(StructuredPromptSpec{
		Purpose:      "p",
		OutputFields: []PromptField{{Name: "x", Type: "int"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[PURPOSE]\np\n\n[OUTPUT]\n- x (int, optional)\n", out)
}

func TestRenderStructuredPrompt_RequiresPurposeAndFields(t *testing.T) {
	_, err := RenderStructuredPrompt(StructuredPromptSpec{OutputFields: []PromptField{{Name: "x"}}})
	assert.Error(t, err)
	_, err = RenderStructuredPrompt(StructuredPromptSpec{Purpose: "p"})
	assert.Error(t, err)
}

func TestFieldsFromStruct(t *testing.T) {
	type sample struct {
		Title   string   `json:"title" prompt_desc:"Heading."`
		Tags    []string `json:"tags,omitempty" prompt:"optional"`
		Score   float64  `json:"score" prompt_type:"0..1"`
		Skipped string   `json:"skipped" prompt:"-"`
		Hidden  string   `json:"-"`
		private string
	}
	fields, err := FieldsFromStruct(&sample{})
	require.NoError(t, err)
	assert.Equal(t, []PromptField{
		{Name: "title", Type: "string", Required: true, Description: "Heading."},
		{Name: "tags", Type: "[]string"},
		{Name: "score", Type: "0..1", Required: true},
	}, fields)

	_, err = FieldsFromStruct(42)
	assert.Error(t, err)
}

func TestBuildAnalysisRequest(t *testing.T) {
	req, err := BuildAnalysisRequest("/work/demo", []scan.FilePreview{
		{RelativePath: "src/index.ts", PreviewText: "console.log('hi')\n"},
		{RelativePath: "src/util.ts", PreviewText: "export const x = 1"},
	})
	require.NoError(t, err)

	assert.Equal(t, AnalysisSystemInstruction, req.System)
	msg := req.Message
	assert.Contains(t, msg, "/work/demo")
	assert.Contains(t, msg, "File: src/index.ts\n```\nconsole.log('hi')\n```")
	assert.Contains(t, msg, "File: src/util.ts\n```\nexport const x = 1\n```")
	assert.Less(t, strings.Index(msg, "src/index.ts"), strings.Index(msg, "src/util.ts"))
	for _, field := range []string{"- summary (string, required)", "- keyComponents ([]{name,path,description}, required)", "- coreFunctionality ([]{name,path,description}, required)"} {
		assert.Contains(t, msg, field)
	}
	assert.Contains(t, msg, "Return a single JSON object and nothing else.")
}

func TestBuildAnalysisRequest_FenceOutrunsPreviewBackticks(t *testing.T) {
	readme := "# Demo\n```sh\nmake run\n```"
	req, err := BuildAnalysisRequest("/work/demo", []scan.FilePreview{
		{RelativePath: "README.md", PreviewText: readme},
		{RelativePath: "src/index.ts", PreviewText: "const s = `x`"},
	})
	require.NoError(t, err)
	assert.Contains(t, req.Message, "File: README.md\n````\n"+readme+"\n````")
	assert.Contains(t, req.Message, "File: src/index.ts\n```\nconst s = `x`\n```")
}

func TestFenceFor(t *testing.T) {
	assert.Equal(t, "```", fenceFor("plain"))
	assert.Equal(t, "```", fenceFor("a `b` c"))
	assert.Equal(t, "````", fenceFor("```"))
	assert.Equal(t, "``````", fenceFor("`` ````` `"))
}

func TestBuildAnalysisRequest_NoPreviews(t *testing.T) {
	req, err := BuildAnalysisRequest("/empty", nil)
	require.NoError(t, err)
	assert.Contains(t, req.Message, "(no source files were found)")
}

func TestJSONCandidates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "json fence with trailing prose",
			raw:  "Here:\n```json\n{\"a\":1}\n```\nLet me know {if} it helps.",
			want: []string{`{"a":1}`, "{\"a\":1}\n```\nLet me know {if}", "Here:\n```json\n{\"a\":1}\n```\nLet me know {if} it helps."},
		},
		{
			name: "unlabelled fence",
			raw:  "```\n{\"b\":2}\n```",
			want: []string{`{"b":2}`, "```\n{\"b\":2}\n```"},
		},
		{
			name: "bare braces",
			raw:  `result: {"c":3} done`,
			want: []string{`{"c":3}`, `result: {"c":3} done`},
		},
		{
			name: "plain json",
			raw:  `  {"d":4}  `,
			want: []string{`{"d":4}`},
		},
		{
			name: "empty",
			raw:  "   ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JSONCandidates(tt.raw))
		})
	}
}

func TestJSONCandidates_JSONFenceWinsOverEarlierFence(t *testing.T) {
	raw := "```go\nfunc main() {}\n```\n```JSON\n{\"e\":5}\n```"
	got := JSONCandidates(raw)
	require.NotEmpty(t, got)
	assert.Equal(t, `{"e":5}`, got[0])
	assert.Equal(t, "func main() {}", got[1])
}
