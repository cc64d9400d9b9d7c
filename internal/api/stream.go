package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"llmperfbench/internal/types"
)

const (
	eventPrefix  = "data: "
	doneSentinel = "[DONE]"
)

// EventKind classifies one line of a completion stream.
type EventKind int

const (
	// EventIgnored is a line without the data prefix (comments, blank separators).
	EventIgnored EventKind = iota
	// EventMalformed is a data line whose payload is not a JSON object.
	// Objects with unexpected field types are EventData.
	EventMalformed
	// EventData is a decoded payload carrying a text fragment, a usage summary, or both.
	EventData
	// EventDone is the end-of-stream sentinel.
	EventDone
)

// StreamEvent is a single classified stream line.
type StreamEvent struct {
	Kind  EventKind
	Text  string
	Usage *types.Usage
}

// ParseLine classifies one line of the event stream.
func ParseLine(line string) StreamEvent {
	line = strings.TrimRight(line, "\r\n")
	payload, ok := strings.CutPrefix(line, eventPrefix)
	if !ok {
		return StreamEvent{Kind: EventIgnored}
	}
	if payload == doneSentinel {
		return StreamEvent{Kind: EventDone}
	}

	// Only the fields the timing needs are decoded. A field of an unexpected
	// type yields no fragment or no usage; the event itself stays valid.
	var chunk struct {
		Choices json.RawMessage `json:"choices"`
		Usage   json.RawMessage `json:"usage"`
	}
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return StreamEvent{Kind: EventMalformed}
	}
	return StreamEvent{
		Kind:  EventData,
		Text:  firstChoiceText(chunk.Choices),
		Usage: decodeUsage(chunk.Usage),
	}
}

func firstChoiceText(raw json.RawMessage) string {
	var choices []struct {
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(raw, &choices); err != nil || len(choices) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(choices[0].Text, &text); err != nil {
		return ""
	}
	return text
}

func decodeUsage(raw json.RawMessage) *types.Usage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var usage types.Usage
	if err := json.Unmarshal(raw, &usage); err != nil {
		return nil
	}
	return &usage
}

// StreamParser turns the event stream of one request into timing data.
// It is owned by a single request and is not safe for concurrent use.
type StreamParser struct {
	start time.Time
	now   func() time.Time

	firstToken time.Time
	lastToken  time.Time
	tokens     int
	intervals  []float64
	usage      *types.Usage
	malformed  int
	done       bool
}

// NewStreamParser creates a parser for a request dispatched at start. now is
// read once per received line; nil means time.Now.
func NewStreamParser(start time.Time, now func() time.Time) *StreamParser {
	if now == nil {
		now = time.Now
	}
	return &StreamParser{start: start, now: now}
}

// Observe applies an event received at the given time and reports whether
// the end-of-stream sentinel has been seen.
func (p *StreamParser) Observe(event StreamEvent, at time.Time) bool {
	if p.done {
		return true
	}

	switch event.Kind {
	case EventDone:
		p.done = true
	case EventMalformed:
		p.malformed++
	case EventData:
		if event.Text != "" {
			if p.tokens > 0 {
				p.intervals = append(p.intervals, millis(at.Sub(p.lastToken)))
			} else {
				p.firstToken = at
			}
			p.lastToken = at
			p.tokens++
		}
		if event.Usage != nil {
			usage := *event.Usage
			p.usage = &usage
		}
	}
	return p.done
}

// Consume reads lines from r until the sentinel or EOF. Any other read error
// is returned and the request must be treated as failed.
func (p *StreamParser) Consume(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			at := p.now()
			if p.Observe(ParseLine(line), at) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Finish computes the request metrics. Without a usage summary the requested
// output length stands in for the completion and total counts.
func (p *StreamParser) Finish(maxTokens uint32) types.RequestMetrics {
	usage := types.Usage{CompletionTokens: maxTokens, TotalTokens: maxTokens}
	if p.usage != nil {
		usage = *p.usage
	}

	var ttft float64
	if p.tokens > 0 {
		ttft = millis(p.firstToken.Sub(p.start))
	}

	return types.RequestMetrics{
		TTFTMs:          ttft,
		TPOTMs:          mean(p.intervals),
		TotalTokens:     usage.TotalTokens,
		InputTokens:     usage.PromptTokens,
		OutputTokens:    usage.CompletionTokens,
		MalformedEvents: p.malformed,
	}
}

// Tokens returns the number of text fragments observed so far.
func (p *StreamParser) Tokens() int {
	return p.tokens
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
