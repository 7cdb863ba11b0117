package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints and rules to spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var constraints, rules []string
	for _, p := range presets {
		constraints = append(constraints, p.Constraints...)
		rules = append(rules, p.Rules...)
	}
	spec.Constraints = append(constraints, spec.Constraints...)
	spec.Rules = append(rules, spec.Rules...)
	return spec
}

// PresetStrictJSON asks for a bare JSON object.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return a single JSON object and nothing else.",
			"Match the schema exactly; no extra fields.",
			"No comments or trailing commas.",
		},
	}
}

// PresetNoInvent keeps paths grounded in the supplied files.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Only reference paths that appear in the provided files; do not invent names.",
		},
	}
}

// PresetCautious asks the model to leave arrays empty rather than guess.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"If the samples are not enough to tell, say so in the summary and leave arrays empty.",
		},
	}
}
