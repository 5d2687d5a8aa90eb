package track

import (
	"context"
	"fmt"
	"testing"

	"github.com/polzovatel/hmm-tracker/internal/agent"
	"github.com/polzovatel/hmm-tracker/internal/snapshot"
)

// fakeDriver simulates a tiny site: navigation sets the URL, clicks follow
// links, page text comes from the pages map.
type fakeDriver struct {
	url     string
	pages   map[string]string // url -> visible text
	links   map[string]string // click target -> destination url
	typed   []string          // values typed, in order
	actions []string          // "kind target" log
	failAt  map[string]error  // target -> forced step failure
	onClick func(target string)
	closed  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		url:    "about:blank",
		pages:  map[string]string{},
		links:  map[string]string{},
		failAt: map[string]error{},
	}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.actions = append(d.actions, "navigate "+url)
	if err := d.failAt[url]; err != nil {
		return err
	}
	d.url = url
	return nil
}

func (d *fakeDriver) Click(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.actions = append(d.actions, "click "+target)
	if err := d.failAt[target]; err != nil {
		return err
	}
	if d.onClick != nil {
		d.onClick(target)
		return nil
	}
	if dest, ok := d.links[target]; ok {
		d.url = dest
	}
	return nil
}

func (d *fakeDriver) Type(ctx context.Context, target, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.actions = append(d.actions, fmt.Sprintf("type %s=%s", target, text))
	if err := d.failAt[target]; err != nil {
		return err
	}
	d.typed = append(d.typed, text)
	return nil
}

func (d *fakeDriver) ReadVisibleText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.pages[d.url], nil
}

func (d *fakeDriver) CurrentURL() string { return d.url }

func (d *fakeDriver) Close(ctx context.Context) error {
	d.closed = true
	return nil
}

func (d *fakeDriver) observe(ctx context.Context) (snapshot.Summary, error) {
	return snapshot.Summary{URL: d.url, Visible: d.pages[d.url]}, nil
}

// fakePolicy replays a scripted decision queue.
type fakePolicy struct {
	t          *testing.T
	queue      []agent.Decision
	repeatLast bool
	calls      int
}

func (p *fakePolicy) Next(ctx context.Context, goal string, obs snapshot.Summary, history []agent.Step) (agent.Decision, error) {
	p.calls++
	if len(p.queue) == 0 {
		p.t.Fatalf("policy called %d times with empty script", p.calls)
	}
	dec := p.queue[0]
	if len(p.queue) > 1 || !p.repeatLast {
		p.queue = p.queue[1:]
	}
	return dec, nil
}

// refusingPolicy fails the test if discovery is ever invoked.
type refusingPolicy struct{ t *testing.T }

func (p refusingPolicy) Next(ctx context.Context, goal string, obs snapshot.Summary, history []agent.Step) (agent.Decision, error) {
	p.t.Fatal("discovery policy invoked, expected pure replay")
	return agent.Decision{}, nil
}
