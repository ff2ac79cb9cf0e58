package planningmodel

import "fmt"

// Warning is a structured, non-fatal diagnostic emitted by the preprocessor
// or extractor. Unlike errors, warnings never abort a solve; they are
// collected and surfaced to the caller alongside the result.
type Warning struct {
	Kind    string // e.g. "unreachable_destination", "leg_filtered", "forced_start_honored"
	Detail  string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Detail)
}

// Warnings is an ordered collection, preserving emission order for
// deterministic logging and result records.
type Warnings []Warning

func (ws *Warnings) Add(kind, detail string) {
	*ws = append(*ws, Warning{Kind: kind, Detail: detail})
}
