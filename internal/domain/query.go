package domain

import "strings"

// QueryKind classifies a user question by the kind of retrieval it needs.
type QueryKind string

const (
	// KindStructured marks questions with explicit numeric or comparison intent.
	KindStructured QueryKind = "STRUCTURED"
	// KindSemantic marks exploratory questions without concrete conditions.
	KindSemantic QueryKind = "SEMANTIC"
	// KindCombined marks questions mixing both.
	KindCombined QueryKind = "COMBINED"
)

// Action is an aggregation intent extracted from a question.
type Action string

const (
	ActionMax   Action = "max"
	ActionMin   Action = "min"
	ActionAvg   Action = "avg"
	ActionSum   Action = "sum"
	ActionCount Action = "count"
	ActionList  Action = "list"
	// ActionNone means no aggregation was requested.
	ActionNone Action = ""
)

// ParseAction normalizes a raw action label. Anything outside the enumerated
// set collapses to ActionNone.
func ParseAction(s string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionMax, ActionMin, ActionAvg, ActionSum, ActionCount, ActionList:
		return Action(strings.ToLower(strings.TrimSpace(s)))
	default:
		return ActionNone
	}
}

// FormalizedQuery is the structured intent extracted from a free-text question.
// Attributes is always a subset of the known attribute set passed to
// NewFormalizedQuery — unknown names are filtered out at construction.
type FormalizedQuery struct {
	Attributes []string
	Location   string
	Action     Action
	Filters    map[string]any
	Raw        string
}

// NewFormalizedQuery builds a FormalizedQuery, keeping only attributes present
// in known and normalizing the action.
func NewFormalizedQuery(
	raw string, attributes []string, location, action string,
	filters map[string]any, known map[string]struct{},
) FormalizedQuery {
	kept := make([]string, 0, len(attributes))
	for _, a := range attributes {
		if _, ok := known[a]; ok {
			kept = append(kept, a)
		}
	}
	if filters == nil {
		filters = map[string]any{}
	}
	return FormalizedQuery{
		Attributes: kept,
		Location:   location,
		Action:     ParseAction(action),
		Filters:    filters,
		Raw:        raw,
	}
}

// IsEmpty reports whether formalization extracted nothing usable.
func (q FormalizedQuery) IsEmpty() bool {
	return len(q.Attributes) == 0 && q.Location == "" && q.Action == ActionNone && len(q.Filters) == 0
}
