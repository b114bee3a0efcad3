package domain

// FeatureDescription is one unit of the semantic index: a canonical attribute
// name paired with a natural-language description of what the attribute means.
// The canonical name is the exact column name as stored in the attribute store,
// byte for byte, including punctuation and mixed-language characters.
type FeatureDescription struct {
	Name        string
	Description string
	Score       float64
}

// ResolvedFeature is a feature that passed both semantic retrieval and
// per-candidate relevance verification for a specific question.
type ResolvedFeature struct {
	Name        string
	Description string
}
