package suggestions

import (
	"fmt"
	"sort"
	"strings"
)

// Engine maps a Context to ranked suggestions using a RuleTable. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	rules *RuleTable
}

// NewEngine builds an Engine over rules. A nil table yields an engine that never suggests.
func NewEngine(rules *RuleTable) *Engine {
	if rules == nil {
		rules = newRuleTable()
	}
	return &Engine{rules: rules}
}

// Rules exposes the table the engine was built with.
func (e *Engine) Rules() *RuleTable {
	if e == nil {
		return nil
	}
	return e.rules
}

type candidate struct {
	rule   *Rule
	labels []string
}

// Generate returns the suggestions triggered by c, sorted by priority tier then confidence,
// both descending, with ties kept in rule-table order. A nil context yields an empty slice.
// The only error source is a rule condition failing to evaluate.
func (e *Engine) Generate(c *Context) ([]Suggestion, error) {
	out := []Suggestion{}
	if e == nil || c == nil || e.rules.Len() == 0 {
		return out, nil
	}

	byID := make(map[string]*candidate)
	collect := func(dim dimension, value string) {
		display := strings.TrimSpace(value)
		if display == "" {
			return
		}
		label := dim.label() + ":" + display
		for _, rule := range e.rules.lookup(dim, display) {
			cand, ok := byID[rule.ID]
			if !ok {
				cand = &candidate{rule: rule}
				byID[rule.ID] = cand
			}
			cand.addLabel(label)
		}
	}

	for _, t := range c.Technologies {
		collect(dimTechnology, t.Name)
	}
	for _, f := range c.Functionalities {
		collect(dimFunctionality, f.Name)
	}
	for _, b := range c.Behaviors {
		collect(dimBehavior, b.Name)
	}
	for _, tag := range c.Tags {
		collect(dimTag, tag)
	}
	collect(dimAssetType, c.AssetType)

	if len(byID) == 0 {
		return out, nil
	}

	candidates := make([]*candidate, 0, len(byID))
	for _, cand := range byID {
		candidates = append(candidates, cand)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].rule.order < candidates[j].rule.order
	})

	var vars map[string]any
	for _, cand := range candidates {
		if cand.rule.guard != nil {
			if vars == nil {
				vars = conditionVars(c)
			}
			ok, err := cand.rule.guard.eval(vars)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", cand.rule.ID, err)
			}
			if !ok {
				continue
			}
		}
		s := cand.rule.Template
		s.RelevantTo = cand.labels
		out = append(out, s)
	}

	sortSuggestions(out)
	return out, nil
}

func (c *candidate) addLabel(label string) {
	for _, existing := range c.labels {
		if existing == label {
			return
		}
	}
	c.labels = append(c.labels, label)
}

// sortSuggestions orders by priority tier, then confidence. It is stable so callers that
// feed rule-table order get that order back for ties.
func sortSuggestions(items []Suggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		a := items[i]
		b := items[j]
		if priorityRank(a.Priority) != priorityRank(b.Priority) {
			return priorityRank(a.Priority) > priorityRank(b.Priority)
		}
		return a.Confidence > b.Confidence
	})
}
