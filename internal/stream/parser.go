// Package stream implements the incremental response parser: a per-analysis
// state machine that separates narration text from the delimited JSON payload
// as fragments arrive, and emits the normalized, scored report exactly once.
package stream

import (
	"encoding/json"
	"strings"

	"github.com/opsvista/incident-analyzer/internal/normalize"
	"github.com/opsvista/incident-analyzer/internal/scoring"
)

// Delimiters marking the machine-readable payload inside the model stream.
const (
	OpenDelimiter  = "<FINAL_JSON>"
	CloseDelimiter = "</FINAL_JSON>"
)

// Terminal error messages.
const (
	msgInvalidJSON = "invalid JSON structure"
	msgMissingJSON = "missing final JSON block"
)

type state int

const (
	stateNarrating state = iota
	stateJSONDetected
	stateComplete
	stateFailed
)

// Parser consumes model-response fragments in arrival order. It is owned by a
// single analysis and must not be shared between goroutines. Across its
// lifetime it emits any number of token events followed by at most one
// terminal event; after that it ignores further input and drops its buffer.
type Parser struct {
	buf     strings.Builder
	emitted int
	openEnd int
	state   state
}

// NewParser returns a parser in the narrating state.
func NewParser() *Parser {
	return &Parser{}
}

// Done reports whether a terminal event has been emitted.
func (p *Parser) Done() bool {
	return p.state == stateComplete || p.state == stateFailed
}

// Feed appends one fragment and returns the events it produced, in order.
// Fragments may be empty or split delimiters at arbitrary boundaries.
func (p *Parser) Feed(fragment string) []Event {
	if p.Done() {
		return nil
	}
	p.buf.WriteString(fragment)

	var events []Event
	full := p.buf.String()

	if p.state == stateNarrating {
		idx := strings.Index(full, OpenDelimiter)
		if idx == -1 {
			// Hold back any tail that could still turn into the delimiter so
			// narration covering it is emitted exactly once.
			safe := len(full) - delimiterHoldback(full)
			if safe > p.emitted {
				events = append(events, Event{Type: EventToken, Text: full[p.emitted:safe]})
				p.emitted = safe
			}
			return events
		}
		if span := full[p.emitted:idx]; strings.TrimSpace(span) != "" {
			events = append(events, Event{Type: EventToken, Text: span})
		}
		p.emitted = idx
		p.openEnd = idx + len(OpenDelimiter)
		p.state = stateJSONDetected
	}

	if p.state == stateJSONDetected {
		closeIdx := strings.Index(full[p.openEnd:], CloseDelimiter)
		if closeIdx == -1 {
			return events
		}
		payload := strings.TrimSpace(full[p.openEnd : p.openEnd+closeIdx])
		events = append(events, p.finish(payload))
	}

	return events
}

// Close signals that the upstream fragment source ended. If no terminal event
// was produced yet, it returns the single "missing final JSON block" error.
func (p *Parser) Close() []Event {
	if p.Done() {
		return nil
	}
	p.state = stateFailed
	p.release()
	return []Event{{Type: EventError, Message: msgMissingJSON}}
}

// Cancel releases the parser without emitting anything. Used when the
// analysis is aborted; the absence of further output is itself the signal.
func (p *Parser) Cancel() {
	if p.Done() {
		return
	}
	p.state = stateFailed
	p.release()
}

func (p *Parser) finish(payload string) Event {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		p.state = stateFailed
		p.release()
		return Event{Type: EventError, Message: msgInvalidJSON}
	}

	report := normalize.Report(raw)
	scoring.Overlay(&report)

	p.state = stateComplete
	p.release()
	return Event{Type: EventFinal, Report: &report}
}

func (p *Parser) release() {
	p.buf.Reset()
	p.emitted = 0
	p.openEnd = 0
}

// delimiterHoldback returns the length of the longest buffer suffix that is a
// proper prefix of the opening delimiter.
func delimiterHoldback(full string) int {
	max := len(OpenDelimiter) - 1
	if max > len(full) {
		max = len(full)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(full, OpenDelimiter[:n]) {
			return n
		}
	}
	return 0
}
