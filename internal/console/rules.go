package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leandrodaf/uad2midi/sdk/contracts"
	"github.com/ohler55/ojg/oj"
)

// Rule parse errors.
var (
	ErrInvalidRule     = errors.New("invalid rule")
	ErrMissingTarget   = errors.New("rule has no target")
	ErrNoAction        = errors.New("rule has no action")
	ErrMultipleActions = errors.New("rule has more than one action")
)

// Action is what a rule does when it fires: a MIDIAction or a ResponseAction.
type Action interface {
	kind() string
}

// MIDIAction emits a MIDI short message to the sink.
type MIDIAction struct {
	Message contracts.MIDIMessage
}

func (MIDIAction) kind() string { return "midi" }

// ResponseAction sends a literal command back to the console.
type ResponseAction struct {
	Command string
}

func (ResponseAction) kind() string { return "response" }

// Rule maps a console value change to an action.
//
// In the absolute dialect Target is a full console path ending in /value.
// In the scoped dialect Target is a property name of the device DeviceID.
// A nil Expected matches every value.
type Rule struct {
	Dialect  contracts.Dialect
	Target   string
	DeviceID string
	Expected *string
	Action   Action
}

// Matches reports whether the rule fires for value observed at addr.
func (r Rule) Matches(addr Address, value string) bool {
	switch r.Dialect {
	case contracts.DialectScoped:
		if r.DeviceID != addr.DeviceID || r.Target != addr.Property {
			return false
		}
	default:
		if r.Target != addr.Path {
			return false
		}
	}
	return r.Expected == nil || *r.Expected == value
}

func (r Rule) String() string {
	expected := "*"
	if r.Expected != nil {
		expected = *r.Expected
	}
	if r.Dialect == contracts.DialectScoped {
		return fmt.Sprintf("%s/%s=%s -> %s", r.DeviceID, r.Target, expected, r.Action.kind())
	}
	return fmt.Sprintf("%s=%s -> %s", r.Target, expected, r.Action.kind())
}

// scalar holds an optional JSON scalar in the string form used for matching.
type scalar struct {
	set bool
	val string
}

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = scalar{}
		return nil
	}
	v, err := oj.Parse(b)
	if err != nil {
		return err
	}
	str, ok := scalarString(v)
	if !ok {
		return fmt.Errorf("expected a JSON scalar, got %s", b)
	}
	*s = scalar{set: true, val: str}
	return nil
}

func (s scalar) ptr() *string {
	if !s.set {
		return nil
	}
	v := s.val
	return &v
}

type midiFields struct {
	MIDICommand *int    `json:"midiCommand"`
	MIDIChannel int     `json:"midiChannel"`
	MIDIData1   int     `json:"midiData1"`
	MIDIData2   int     `json:"midiData2"`
	Response    *string `json:"response"`
}

func (f midiFields) action() (Action, error) {
	switch {
	case f.MIDICommand != nil && f.Response != nil:
		return nil, ErrMultipleActions
	case f.MIDICommand != nil:
		return MIDIAction{Message: contracts.MIDIMessage{
			Command: *f.MIDICommand,
			Channel: f.MIDIChannel,
			Data1:   f.MIDIData1,
			Data2:   f.MIDIData2,
		}}, nil
	case f.Response != nil:
		if *f.Response == "" {
			return nil, fmt.Errorf("%w: empty response", ErrInvalidRule)
		}
		return ResponseAction{Command: *f.Response}, nil
	default:
		return nil, ErrNoAction
	}
}

type absoluteRule struct {
	Path string `json:"path"`
	Data scalar `json:"data"`
	midiFields
}

type scopedRule struct {
	DeviceID string `json:"deviceId"`
	Property string `json:"property"`
	Value    scalar `json:"value"`
	midiFields
}

// ParseRule decodes one JSON rule using the schema of dialect. Unknown fields
// are rejected, so rules written for the other dialect never load.
func ParseRule(dialect contracts.Dialect, raw string) (Rule, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	rule := Rule{Dialect: dialect}
	var fields midiFields
	switch dialect {
	case contracts.DialectAbsolute:
		var r absoluteRule
		if err := dec.Decode(&r); err != nil {
			return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		if r.Path == "" {
			return Rule{}, fmt.Errorf("%w: path is required", ErrMissingTarget)
		}
		rule.Target, rule.Expected, fields = r.Path, r.Data.ptr(), r.midiFields
	case contracts.DialectScoped:
		var r scopedRule
		if err := dec.Decode(&r); err != nil {
			return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		if r.DeviceID == "" || r.Property == "" {
			return Rule{}, fmt.Errorf("%w: deviceId and property are required", ErrMissingTarget)
		}
		rule.Target, rule.DeviceID, rule.Expected, fields = r.Property, r.DeviceID, r.Value.ptr(), r.midiFields
	default:
		return Rule{}, fmt.Errorf("%w: unsupported dialect %s", ErrInvalidRule, dialect)
	}

	action, err := fields.action()
	if err != nil {
		return Rule{}, err
	}
	rule.Action = action
	return rule, nil
}

// RuleTable is the ordered, read-only set of rules for one process lifetime.
type RuleTable struct {
	dialect contracts.Dialect
	rules   []Rule
}

// NewRuleTable builds a table from already parsed rules.
func NewRuleTable(dialect contracts.Dialect, rules ...Rule) *RuleTable {
	return &RuleTable{dialect: dialect, rules: append([]Rule(nil), rules...)}
}

// LoadRuleTable parses every raw rule in order. Rules that fail to parse are
// logged and skipped.
func LoadRuleTable(dialect contracts.Dialect, raw []string, log contracts.Logger) *RuleTable {
	t := &RuleTable{dialect: dialect}
	for i, r := range raw {
		rule, err := ParseRule(dialect, r)
		if err != nil {
			log.Error("Skipping invalid rule",
				log.Field().Int("index", i),
				log.Field().String("rule", r),
				log.Field().Error("error", err))
			continue
		}
		log.Debug("Loaded rule", log.Field().String("rule", rule.String()))
		t.rules = append(t.rules, rule)
	}
	log.Info("Rule table loaded",
		log.Field().String("dialect", dialect.String()),
		log.Field().Int("rules", len(t.rules)),
		log.Field().Int("skipped", len(raw)-len(t.rules)))
	return t
}

// Dialect returns the addressing dialect of all rules in the table.
func (t *RuleTable) Dialect() contracts.Dialect { return t.dialect }

// Len returns the number of rules.
func (t *RuleTable) Len() int { return len(t.rules) }

// Rules returns a copy of the rules in evaluation order.
func (t *RuleTable) Rules() []Rule { return append([]Rule(nil), t.rules...) }

// Match returns every rule that fires for value at addr, in table order.
// Duplicate rules fire once each.
func (t *RuleTable) Match(addr Address, value string) []Rule {
	var matched []Rule
	for _, r := range t.rules {
		if r.Matches(addr, value) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Paths returns the distinct rule targets in first-seen order.
func (t *RuleTable) Paths() []string {
	seen := make(map[string]struct{}, len(t.rules))
	var paths []string
	for _, r := range t.rules {
		if _, ok := seen[r.Target]; ok {
			continue
		}
		seen[r.Target] = struct{}{}
		paths = append(paths, r.Target)
	}
	return paths
}

// ForDevice returns the scoped rules addressing deviceID, in table order.
func (t *RuleTable) ForDevice(deviceID string) []Rule {
	var rules []Rule
	for _, r := range t.rules {
		if r.DeviceID == deviceID {
			rules = append(rules, r)
		}
	}
	return rules
}
