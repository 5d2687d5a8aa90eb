package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

const (
	visibleTextCap = 1200
	elementLimit   = 50
)

// Element describes minimal info about an interactive node.
type Element struct {
	Role string `json:"role"`
	Text string `json:"text"`
	Sel  string `json:"selector"`
}

// Summary is a compact view of the current page, sized for an LLM prompt.
type Summary struct {
	URL      string
	Title    string
	Visible  string
	Elements []Element
}

// ToMap returns the summary as a JSON-friendly map.
func (s Summary) ToMap() map[string]any {
	return map[string]any{
		"url":      s.URL,
		"title":    s.Title,
		"visible":  s.Visible,
		"elements": s.Elements,
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTITLE: %s\nTEXT: %s\nELEMENTS:\n", s.URL, s.Title, s.Visible)
	for i, el := range s.Elements {
		fmt.Fprintf(&b, "%d) role=%s text=%q selector=%s\n", i+1, el.Role, el.Text, el.Sel)
	}
	return b.String()
}

// Pager is anything that can hand out the underlying playwright page.
type Pager interface {
	Page() playwright.Page
}

// Collect builds a summary of the current page. Failures while gathering
// individual pieces degrade to empty fields rather than aborting the step.
func Collect(ctx context.Context, pager Pager) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	page := pager.Page()
	title, _ := page.Title()
	url := page.URL()

	text, _ := page.InnerText("body")
	if len(text) > visibleTextCap {
		text = text[:visibleTextCap]
	}

	elems, _ := collectInteractive(page, elementLimit)

	return Summary{
		URL:      url,
		Title:    title,
		Visible:  strings.TrimSpace(text),
		Elements: elems,
	}, nil
}

func collectInteractive(page playwright.Page, limit int) ([]Element, error) {
	script := `(limit) => {
		const pick = [];
		const nodes = document.querySelectorAll("a,button,input,select,textarea,[role],[onclick]");
		for (const el of nodes) {
			if (pick.length >= limit) break;
			const rect = el.getBoundingClientRect();
			if (rect.width === 0 && rect.height === 0) continue;
			const role = el.getAttribute("role") || el.tagName.toLowerCase();
			let text = (el.innerText || el.textContent || el.value || el.getAttribute("placeholder") || "").trim();
			text = text.replace(/\s+/g, " ").slice(0, 120);
			let sel = "";
			if (el.id) {
				sel = "#" + el.id;
			} else if (el.getAttribute("name")) {
				sel = el.tagName.toLowerCase() + "[name=\"" + el.getAttribute("name") + "\"]";
			} else if (text) {
				sel = "text=" + text.split("\n")[0].slice(0, 40);
			}
			if (!text && !sel) continue;
			pick.push({role: role, text: text, selector: sel});
		}
		return pick;
	}`

	val, err := page.Evaluate(script, limit)
	if err != nil {
		return nil, fmt.Errorf("collect elements: %w", err)
	}
	arr, ok := val.([]interface{})
	if !ok {
		return nil, nil
	}
	elems := make([]Element, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		elems = append(elems, Element{
			Role: asString(m["role"]),
			Text: asString(m["text"]),
			Sel:  asString(m["selector"]),
		})
	}
	return elems, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
