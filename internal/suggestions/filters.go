package suggestions

// FilterByType returns the suggestions whose type is one of types, in their original order.
// With no types the input is returned as a copy.
func FilterByType(items []Suggestion, types ...Type) []Suggestion {
	if len(types) == 0 {
		return append([]Suggestion{}, items...)
	}
	allowed := make(map[Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		if allowed[item.Type] {
			out = append(out, item)
		}
	}
	return out
}

// FilterByPriority returns the suggestions whose priority is one of priorities.
func FilterByPriority(items []Suggestion, priorities ...Priority) []Suggestion {
	if len(priorities) == 0 {
		return append([]Suggestion{}, items...)
	}
	allowed := make(map[Priority]bool, len(priorities))
	for _, p := range priorities {
		allowed[p] = true
	}
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		if allowed[item.Priority] {
			out = append(out, item)
		}
	}
	return out
}

// FilterByConfidence keeps suggestions with confidence >= threshold.
func FilterByConfidence(items []Suggestion, threshold int) []Suggestion {
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		if item.Confidence >= threshold {
			out = append(out, item)
		}
	}
	return out
}

// Limit truncates items to at most max elements. A non-positive max means no limit.
func Limit(items []Suggestion, max int) []Suggestion {
	if max <= 0 || len(items) <= max {
		return items
	}
	return items[:max]
}

// Filter is the set of consumer-side restrictions applied after generation.
type Filter struct {
	Types         []Type
	Priorities    []Priority
	MinConfidence int
	Max           int
}

// Apply runs every restriction in f over items: types, priorities, confidence, then the cap.
func (f Filter) Apply(items []Suggestion) []Suggestion {
	out := FilterByType(items, f.Types...)
	out = FilterByPriority(out, f.Priorities...)
	out = FilterByConfidence(out, f.MinConfidence)
	return Limit(out, f.Max)
}
