// Package blockparser is the deterministic, rule-driven extractor for
// well-understood layouts: it segments a token stream into transaction
// blocks using date headers and start triggers, then applies whole-block
// field extraction.
package blockparser

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// RuleSet is the externalized layout description for one broker template.
// Rules are data so new layouts ship without recompilation.
type RuleSet struct {
	Broker string `json:"broker"`

	// NoisePatterns drop page headers/footers before any state change.
	NoisePatterns []string `json:"noise_patterns"`

	// DatePattern recognizes date-header lines. The first capture group,
	// when present, becomes the date text; otherwise the whole match.
	DatePattern string `json:"date_pattern"`

	// StartPattern recognizes the first line of a transaction block.
	StartPattern string `json:"start_pattern"`

	// Fields maps field names to extraction regexps applied against the
	// whole joined block. A named group `value` contributes that value;
	// named groups `qty`/`price` contribute both; otherwise the full
	// match text is used.
	Fields map[string]string `json:"fields"`

	noise  []*regexp.Regexp
	date   *regexp.Regexp
	start  *regexp.Regexp
	fields map[string]*regexp.Regexp
}

// ParseRules decodes and eagerly validates a rule set: every regexp must
// compile and the required keys must be present. Failing at load beats
// failing mid-parse.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("invalid rule set JSON: %w", err)
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRules reads and validates a rule set file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	return rs, nil
}

func (rs *RuleSet) compile() error {
	if rs.DatePattern == "" {
		return fmt.Errorf("missing required key: date_pattern")
	}
	if rs.StartPattern == "" {
		return fmt.Errorf("missing required key: start_pattern")
	}
	if len(rs.Fields) == 0 {
		return fmt.Errorf("missing required key: fields")
	}

	var err error
	if rs.date, err = regexp.Compile(rs.DatePattern); err != nil {
		return fmt.Errorf("date_pattern does not compile: %w", err)
	}
	if rs.start, err = regexp.Compile(rs.StartPattern); err != nil {
		return fmt.Errorf("start_pattern does not compile: %w", err)
	}

	rs.noise = make([]*regexp.Regexp, 0, len(rs.NoisePatterns))
	for i, p := range rs.NoisePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("noise_patterns[%d] does not compile: %w", i, err)
		}
		rs.noise = append(rs.noise, re)
	}

	rs.fields = make(map[string]*regexp.Regexp, len(rs.Fields))
	for name, p := range rs.Fields {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("field %q does not compile: %w", name, err)
		}
		rs.fields[name] = re
	}
	return nil
}
