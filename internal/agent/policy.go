package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/polzovatel/hmm-tracker/internal/llm"
	"github.com/polzovatel/hmm-tracker/internal/sequence"
	"github.com/polzovatel/hmm-tracker/internal/snapshot"
)

const systemPrompt = `You are a fast, deterministic browser agent tracking an ocean shipment.
CRITICAL RULES:
1. Respond with a SINGLE JSON object and NOTHING else: {"action": "...", "input": {...}}
2. Allowed actions:
   navigate {"url": "..."} - open a page
   click    {"target": "..."} - click element by CSS selector or text=... locator
   type     {"target": "...", "text": "..."} - fill an input
   read     {} - read the visible page text
   finish   {"message": "Voyage: <voyage_number>, Arrival: <arrival_date>"} - task done
3. Pick targets from snapshot.elements (prefer their selector field).
4. Results often load inside an iframe; use read to see the full text before finishing.
5. Only finish when the voyage number and arrival date are visible, and report them EXACTLY in the format "Voyage: <voyage_number>, Arrival: <arrival_date>".`

// Step is one executed action with its outcome, shown to the model as memory.
type Step struct {
	Action sequence.Action `json:"action"`
	Result string          `json:"result"`
}

// Decision is a single chosen action, or completion with a final message.
type Decision struct {
	Action  sequence.Action
	Finish  bool
	Message string
}

// Policy selects the next browser action for a goal given the current page.
type Policy interface {
	Next(ctx context.Context, goal string, obs snapshot.Summary, history []Step) (Decision, error)
}

type llmPolicy struct {
	llm llm.Client
}

func NewPolicy(client llm.Client) Policy {
	return &llmPolicy{llm: client}
}

func (p *llmPolicy) Next(ctx context.Context, goal string, obs snapshot.Summary, history []Step) (Decision, error) {
	payload := map[string]any{
		"task":    goal,
		"page":    obs.ToMap(),
		"history": last(history, 8),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Decision{}, err
	}
	msg := fmt.Sprintf("STATE:\n%s\n\nOUTPUT FORMAT (strict JSON only, no text outside): {\"action\":\"...\",\"input\":{}}\n", string(raw))
	resp, err := p.llm.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: msg}},
		Temperature: 0.0,
		MaxTokens:   400,
	})
	if err != nil {
		return Decision{}, err
	}
	dec, err := parseDecision(resp.Text)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: raw=%q", err, resp.Text)
	}
	return dec, nil
}

func parseDecision(text string) (Decision, error) {
	jsonStr, err := extractJSON(text)
	if err != nil {
		return Decision{}, err
	}
	var parsed struct {
		Action string         `json:"action"`
		Input  map[string]any `json:"input"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return Decision{}, fmt.Errorf("llm json parse: %w", err)
	}
	if parsed.Input == nil {
		parsed.Input = map[string]any{}
	}

	name := strings.TrimSpace(parsed.Action)
	if name == "finish" {
		msg, _ := parsed.Input["message"].(string)
		if msg == "" {
			if m, ok := parsed.Input["result"].(string); ok {
				msg = m
			}
		}
		return Decision{Finish: true, Message: msg}, nil
	}

	str := func(key string) string {
		v, _ := parsed.Input[key].(string)
		return strings.TrimSpace(v)
	}
	switch sequence.Kind(name) {
	case sequence.KindNavigate:
		return Decision{Action: sequence.Action{Kind: sequence.KindNavigate, Target: str("url")}}, nil
	case sequence.KindClick:
		return Decision{Action: sequence.Action{Kind: sequence.KindClick, Target: str("target")}}, nil
	case sequence.KindType:
		return Decision{Action: sequence.Action{Kind: sequence.KindType, Target: str("target"), Value: str("text")}}, nil
	case sequence.KindRead:
		return Decision{Action: sequence.Action{Kind: sequence.KindRead, Target: str("target")}}, nil
	default:
		return Decision{}, fmt.Errorf("unknown action %q", name)
	}
}

// extractJSON pulls the first balanced JSON object out of model output that
// may carry stray prose around it.
func extractJSON(text string) (string, error) {
	depth := 0
	start := -1
	inStr := false
	esc := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if esc {
			esc = false
			continue
		}
		switch ch {
		case '\\':
			if inStr {
				esc = true
			}
		case '"':
			inStr = !inStr
		case '{':
			if !inStr {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inStr && depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return text[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("json not found")
}

var resultPattern = regexp.MustCompile(`(?i)voyage:\s*(.+?)\s*,\s*arrival:\s*(.+?)\s*$`)

// ParseResult recognizes the "Voyage: <v>, Arrival: <d>" answer format in a
// completion message.
func ParseResult(message string) (voyage, arrival string, ok bool) {
	m := resultPattern.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func last(items []Step, n int) []Step {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
