package skills

// Defaults returns the built-in skill set the orchestrator and decompose
// package trigger by phrase.
func Defaults() []Definition {
	return []Definition{
		{
			Name:           "generate-brd-section",
			TriggerPhrases: []string{"generate brd"},
			Instructions: "You are reverse-engineering an already-implemented feature into a " +
				"Business Requirements Document section. Ground every sentence in the provided " +
				"code context: name real components, real files, and real behavior. Do not " +
				"invent functionality the context does not support. Prefer precise, falsifiable " +
				"statements over vague ones, since every claim will be checked against the code.",
			ToolsHint: []string{"query_graph", "read_file", "search_files"},
		},
		{
			Name:           "verify-brd-section",
			TriggerPhrases: []string{"verify brd"},
			Instructions: "You are reviewing a generated BRD section for claims that can be " +
				"checked against code. List anything you are unsure is actually implemented.",
			ToolsHint: []string{"query_graph"},
		},
		{
			Name:           "extract-claims",
			TriggerPhrases: []string{"extract claims"},
			Instructions: "Extract every verifiable statement from the given text as a JSON " +
				"array of objects with fields text, kind, mentioned_entities, search_patterns. " +
				"Only include statements that name a concrete entity, file, or behavior; skip " +
				"purely stylistic or introductory sentences.",
		},
		{
			Name:           "decompose-epics",
			TriggerPhrases: []string{"decompose epics", "decompose brd"},
			Instructions: "Decompose the given Business Requirements Document into Epics, each " +
				"a 2-4 week grouping of related requirements, and further into Stories with " +
				"acceptance criteria. Reference the BRD's functional and technical requirement " +
				"IDs directly rather than restating them.",
		},
	}
}
