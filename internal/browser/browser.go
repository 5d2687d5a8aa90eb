package browser

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	defaultNavTimeout  = 30 * time.Second
	defaultWaitTimeout = 10 * time.Second

	// Human-like jitter bounds between actions, to avoid tripping the
	// portal's bot detection.
	paceMin = 1 * time.Second
	paceMax = 3 * time.Second
)

// Driver exposes the minimal page actions the tracking controller needs.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, target string) error
	Type(ctx context.Context, target, text string) error
	ReadVisibleText(ctx context.Context) (string, error)
	CurrentURL() string
	Close(ctx context.Context) error
}

// Launcher owns the playwright lifecycle.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewLauncher(ctx context.Context, headless bool) (*Launcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser}, nil
}

// NewSession opens a fresh page for one tracking run. Pace enables the
// human-like delay before each action.
func (l *Launcher) NewSession(ctx context.Context, pace bool) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultNavTimeout.Milliseconds()))
	return &Session{context: bctx, page: page, pace: pace}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

type Session struct {
	context playwright.BrowserContext
	page    playwright.Page
	pace    bool
}

// Page exposes the underlying page for the snapshot collector.
func (s *Session) Page() playwright.Page { return s.page }

func (s *Session) Close(ctx context.Context) error {
	_ = ctx
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.context != nil {
		return s.context.Close()
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.before(ctx); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(defaultNavTimeout.Milliseconds())),
	})
	return wrap(err)
}

func (s *Session) Click(ctx context.Context, target string) error {
	if err := s.before(ctx); err != nil {
		return err
	}
	first := s.page.Locator(target).First()
	if err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultWaitTimeout.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	if err := first.ScrollIntoViewIfNeeded(); err != nil {
		// Try the click anyway.
	}
	return wrap(first.Click())
}

func (s *Session) Type(ctx context.Context, target, text string) error {
	if err := s.before(ctx); err != nil {
		return err
	}
	loc := s.page.Locator(target).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultWaitTimeout.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	return wrap(loc.Fill(text))
}

// ReadVisibleText returns the page body text, falling back to iframes when
// the main frame is empty. Tracking results on the portal render inside an
// iframe.
func (s *Session) ReadVisibleText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, err := s.page.InnerText("body")
	if err == nil && strings.TrimSpace(val) != "" {
		return val, nil
	}
	for _, frame := range s.page.Frames() {
		if frame == s.page.MainFrame() {
			continue
		}
		frameVal, frameErr := frame.InnerText("body")
		if frameErr == nil && strings.TrimSpace(frameVal) != "" {
			return frameVal, nil
		}
	}
	if err != nil {
		return "", wrap(err)
	}
	return val, nil
}

func (s *Session) CurrentURL() string {
	return s.page.URL()
}

// before enforces cancellation and, when pacing is on, sleeps a randomized
// human-like interval.
func (s *Session) before(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.pace {
		return nil
	}
	jitter := paceMin + time.Duration(rand.Int63n(int64(paceMax-paceMin)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}
