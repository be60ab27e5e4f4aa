package blockparser

import (
	"regexp"
	"strings"

	"github.com/S3ph1r/warroom-ingest/internal/logging"
)

// Record is one completed transaction block: the date context in effect at
// flush time, the extracted field values, and the raw joined block text.
type Record struct {
	Date   string
	Fields map[string]string
	Raw    string
}

// Field returns the extracted value for name, or "".
func (r Record) Field(name string) string { return r.Fields[name] }

// Parser runs the block state machine over a stream of physical lines.
// State is currentDate plus the in-progress block; everything else is in
// the rule set.
type Parser struct {
	rules *RuleSet
	log   logging.Logger

	currentDate string
	block       []string
	records     []Record
	discarded   int
}

// New creates a Parser over a compiled rule set. A nil logger falls back to
// the package default.
func New(rules *RuleSet, log logging.Logger) *Parser {
	if log == nil {
		log = logging.GetLogger()
	}
	return &Parser{rules: rules, log: log}
}

// Parse runs the state machine over the document text and returns the
// completed records. Resets parser state, so a Parser is reusable.
func (p *Parser) Parse(text string) []Record {
	p.currentDate = ""
	p.block = nil
	p.records = nil
	p.discarded = 0

	for _, line := range strings.Split(text, "\n") {
		p.processLine(line)
	}
	p.flush()

	if p.discarded > 0 {
		p.log.Debug("discarded lines outside any block",
			logging.Field{Key: logging.FieldCount, Value: p.discarded})
	}
	return p.records
}

// Discarded reports how many non-noise lines arrived with no block open
// during the last Parse. Exposed for diagnostics: this is a known lossy
// edge of the state machine.
func (p *Parser) Discarded() int { return p.discarded }

// processLine applies the transition rules in strict order: noise, date
// header, transaction start, continuation.
func (p *Parser) processLine(line string) {
	p.step(line, true)
}

// step is one state-machine transition. split gates the multi-start virtual
// split so sub-lines, which are split products themselves, cannot recurse.
func (p *Parser) step(line string, split bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	for _, re := range p.rules.noise {
		if re.MatchString(trimmed) {
			return
		}
	}

	// A date header flushes, updates the date context and consumes the
	// line. It never seeds a block, even if it would also match the
	// start pattern.
	if m := p.rules.date.FindStringSubmatch(trimmed); m != nil {
		p.flush()
		if len(m) > 1 && m[1] != "" {
			p.currentDate = m[1]
		} else {
			p.currentDate = m[0]
		}
		return
	}

	starts := p.rules.start.FindAllStringIndex(trimmed, -1)
	if len(starts) == 0 {
		if p.block != nil {
			p.block = append(p.block, trimmed)
		} else {
			p.discarded++
			p.log.Debug("line discarded, no open block",
				logging.Field{Key: "line", Value: trimmed})
		}
		return
	}

	if !split || (len(starts) == 1 && starts[0][0] == 0) {
		p.flush()
		p.block = []string{trimmed}
		return
	}

	// Some PDF extractors lose line breaks and concatenate several
	// transaction starts onto one physical line; split at each match and
	// run every sub-line through the full state machine in sequence, so a
	// leading date header still updates the date context.
	if prefix := strings.TrimSpace(trimmed[:starts[0][0]]); prefix != "" {
		p.step(prefix, false)
	}
	for i, s := range starts {
		end := len(trimmed)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		p.step(strings.TrimSpace(trimmed[s[0]:end]), false)
	}
}

// flush completes the open block: joins its lines and applies every field
// extractor against the whole blob, so fields split across lines are still
// captured.
func (p *Parser) flush() {
	if p.block == nil {
		return
	}
	blob := strings.Join(p.block, "\n")
	p.block = nil

	fields := make(map[string]string, len(p.rules.fields))
	for name, re := range p.rules.fields {
		m := re.FindStringSubmatch(blob)
		if m == nil {
			continue
		}
		// First occurrence wins: running-balance figures follow the
		// transaction amount in the observed layouts, never precede it.
		value, qty, price := namedGroups(re, m)
		switch {
		case qty != "" || price != "":
			if qty != "" {
				fields["qty"] = qty
			}
			if price != "" {
				fields["price"] = price
			}
		case value != "":
			fields[name] = value
		default:
			fields[name] = m[0]
		}
	}

	p.records = append(p.records, Record{
		Date:   p.currentDate,
		Fields: fields,
		Raw:    blob,
	})
}

func namedGroups(re *regexp.Regexp, m []string) (value, qty, price string) {
	for i, name := range re.SubexpNames() {
		if i == 0 || i >= len(m) {
			continue
		}
		switch name {
		case "value":
			value = m[i]
		case "qty":
			qty = m[i]
		case "price":
			price = m[i]
		}
	}
	return value, qty, price
}
