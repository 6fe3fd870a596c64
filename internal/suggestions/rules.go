package suggestions

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules/default.yaml
var defaultRulesYAML []byte

// ErrInvalidRules is returned when a rule file cannot be turned into a RuleTable.
var ErrInvalidRules = errors.New("invalid suggestion rules")

// dimension identifies which part of a Context a trigger value is matched against.
type dimension int

const (
	dimTechnology dimension = iota
	dimFunctionality
	dimBehavior
	dimTag
	dimAssetType
)

func (d dimension) label() string {
	switch d {
	case dimTechnology:
		return "technology"
	case dimFunctionality:
		return "functionality"
	case dimBehavior:
		return "behavior"
	case dimTag:
		return "tag"
	default:
		return "asset-type"
	}
}

type ruleFile struct {
	Version int        `yaml:"version"`
	Rules   []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID        string       `yaml:"id"`
	When      triggerSpec  `yaml:"when"`
	Condition string       `yaml:"condition"`
	Suggest   templateSpec `yaml:"suggest"`
}

type triggerSpec struct {
	Technologies    []string `yaml:"technologies"`
	Functionalities []string `yaml:"functionalities"`
	Behaviors       []string `yaml:"behaviors"`
	Tags            []string `yaml:"tags"`
	AssetTypes      []string `yaml:"assetTypes"`
}

type templateSpec struct {
	Type        string `yaml:"type"`
	Priority    string `yaml:"priority"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Confidence  int    `yaml:"confidence"`
	Category    string `yaml:"category"`
}

// Rule is a compiled rule-table entry.
type Rule struct {
	ID        string
	Template  Suggestion
	Condition string

	order int
	guard *condition
}

// RuleTable is the read-only lookup structure consulted by the Engine. It is built once
// and shared by reference; nothing mutates it after LoadRules returns.
type RuleTable struct {
	rules []*Rule
	index map[dimension]map[string][]*Rule
}

// LoadRules parses and validates a YAML rule file.
func LoadRules(r io.Reader) (*RuleTable, error) {
	var file ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return newRuleTable(), nil
		}
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidRules, err)
	}
	if file.Version > 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRules, file.Version)
	}

	env, err := newConditionEnv()
	if err != nil {
		return nil, fmt.Errorf("build condition env: %w", err)
	}

	table := newRuleTable()
	seen := make(map[string]bool, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := compileRule(env, spec, i)
		if err != nil {
			return nil, err
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRules, rule.ID)
		}
		seen[rule.ID] = true
		table.add(rule, spec.When)
	}
	return table, nil
}

// LoadRulesFile reads rules from path.
func LoadRulesFile(path string) (*RuleTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// DefaultRules returns the rule table embedded in the binary.
func DefaultRules() (*RuleTable, error) {
	return LoadRules(bytes.NewReader(defaultRulesYAML))
}

// Len reports the number of rules in the table.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Rules returns the rules in file order. The returned slice is a copy.
func (t *RuleTable) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, *r)
	}
	return out
}

func newRuleTable() *RuleTable {
	return &RuleTable{index: make(map[dimension]map[string][]*Rule)}
}

func (t *RuleTable) add(rule *Rule, when triggerSpec) {
	t.rules = append(t.rules, rule)
	t.indexValues(dimTechnology, when.Technologies, rule)
	t.indexValues(dimFunctionality, when.Functionalities, rule)
	t.indexValues(dimBehavior, when.Behaviors, rule)
	t.indexValues(dimTag, when.Tags, rule)
	t.indexValues(dimAssetType, when.AssetTypes, rule)
}

func (t *RuleTable) indexValues(dim dimension, values []string, rule *Rule) {
	for _, v := range values {
		key := normalizeKey(v)
		if key == "" {
			continue
		}
		byKey, ok := t.index[dim]
		if !ok {
			byKey = make(map[string][]*Rule)
			t.index[dim] = byKey
		}
		byKey[key] = append(byKey[key], rule)
	}
}

func (t *RuleTable) lookup(dim dimension, value string) []*Rule {
	if t == nil {
		return nil
	}
	return t.index[dim][normalizeKey(value)]
}

func compileRule(env *conditionEnv, spec ruleSpec, order int) (*Rule, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: rule #%d has no id", ErrInvalidRules, order+1)
	}
	if !spec.When.hasTrigger() {
		return nil, fmt.Errorf("%w: rule %q has no trigger values", ErrInvalidRules, id)
	}
	typ, err := ParseType(spec.Suggest.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidRules, id, err)
	}
	priority, err := ParsePriority(spec.Suggest.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidRules, id, err)
	}
	if spec.Suggest.Confidence < MinConfidence || spec.Suggest.Confidence > MaxConfidence {
		return nil, fmt.Errorf("%w: rule %q: confidence %d outside [%d,%d]",
			ErrInvalidRules, id, spec.Suggest.Confidence, MinConfidence, MaxConfidence)
	}
	title := strings.TrimSpace(spec.Suggest.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: rule %q has no title", ErrInvalidRules, id)
	}

	rule := &Rule{
		ID: id,
		Template: Suggestion{
			ID:          id,
			Type:        typ,
			Priority:    priority,
			Title:       title,
			Description: strings.TrimSpace(spec.Suggest.Description),
			Confidence:  spec.Suggest.Confidence,
			Category:    strings.TrimSpace(spec.Suggest.Category),
		},
		Condition: strings.TrimSpace(spec.Condition),
		order:     order,
	}
	if rule.Condition != "" {
		guard, err := env.compile(rule.Condition)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q condition: %v", ErrInvalidRules, id, err)
		}
		rule.guard = guard
	}
	return rule, nil
}

func (w triggerSpec) hasTrigger() bool {
	for _, values := range [][]string{w.Technologies, w.Functionalities, w.Behaviors, w.Tags, w.AssetTypes} {
		for _, v := range values {
			if normalizeKey(v) != "" {
				return true
			}
		}
	}
	return false
}
