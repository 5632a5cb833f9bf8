// Package browser implements the actuator and session manager on top of
// Playwright. One browser process hosts all sessions; each session gets
// its own context and page.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"github.com/webpilot/webpilot/internal/agent"
	"github.com/webpilot/webpilot/pkg/models"
)

const (
	navigationTimeoutMs = 30000
	actionTimeoutMs     = 5000
	defaultWaitMs       = 1000
	maxWaitMs           = 15000
	maxExtractChars     = 4000
)

// Config holds browser launch settings.
type Config struct {
	// Headless controls whether the browser window is shown.
	Headless bool
}

// Runner owns the Playwright process and the open sessions. Implements
// agent.Actuator and orchestrator.SessionManager.
type Runner struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]playwright.Page
	contexts map[string]playwright.BrowserContext
}

// NewRunner starts Playwright and launches the browser.
func NewRunner(cfg Config, log zerolog.Logger) (*Runner, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Runner{
		pw:       pw,
		browser:  browser,
		log:      log,
		sessions: make(map[string]playwright.Page),
		contexts: make(map[string]playwright.BrowserContext),
	}, nil
}

// Close shuts down all sessions and the browser process.
func (r *Runner) Close() error {
	r.mu.Lock()
	for id, bctx := range r.contexts {
		if err := bctx.Close(); err != nil {
			r.log.Warn().Err(err).Str("session", id).Msg("close context failed")
		}
	}
	r.sessions = make(map[string]playwright.Page)
	r.contexts = make(map[string]playwright.BrowserContext)
	r.mu.Unlock()

	if err := r.browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return r.pw.Stop()
}

// CreateSession opens a fresh browser context and page and returns its
// session handle.
func (r *Runner) CreateSession(ctx context.Context) (string, error) {
	bctx, err := r.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		return "", fmt.Errorf("create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return "", fmt.Errorf("create page: %w", err)
	}

	id := "session-" + uuid.New().String()
	r.mu.Lock()
	r.sessions[id] = page
	r.contexts[id] = bctx
	r.mu.Unlock()

	r.log.Debug().Str("session", id).Msg("session created")
	return id, nil
}

// CloseSession tears down one session's context.
func (r *Runner) CloseSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	bctx, ok := r.contexts[sessionID]
	delete(r.sessions, sessionID)
	delete(r.contexts, sessionID)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	if err := bctx.Close(); err != nil {
		return fmt.Errorf("close session %s: %w", sessionID, err)
	}
	r.log.Debug().Str("session", sessionID).Msg("session closed")
	return nil
}

func (r *Runner) page(sessionID string) (playwright.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	return page, nil
}

// Execute implements agent.Actuator.
func (r *Runner) Execute(ctx context.Context, sessionID string, step models.Step) (agent.ActionResult, error) {
	page, err := r.page(sessionID)
	if err != nil {
		return agent.ActionResult{}, err
	}

	switch step.Tool {
	case models.ToolGoto:
		return r.doGoto(page, step.Instruction)
	case models.ToolAct:
		return r.doAct(page, step.Instruction)
	case models.ToolExtract:
		return r.doExtract(page, step.Instruction)
	case models.ToolObserve:
		return r.doObserve(page)
	case models.ToolWait:
		return doWait(page, step.Instruction)
	case models.ToolNavback:
		return r.doNavback(page)
	case models.ToolScreenshot:
		shot, err := page.Screenshot(playwright.PageScreenshotOptions{})
		if err != nil {
			return agent.ActionResult{}, fmt.Errorf("screenshot: %w", err)
		}
		return agent.ActionResult{Screenshot: shot}, nil
	default:
		return agent.ActionResult{}, fmt.Errorf("tool %s is not executable", step.Tool)
	}
}

// Screenshot implements agent.Actuator.
func (r *Runner) Screenshot(ctx context.Context, sessionID string) ([]byte, error) {
	page, err := r.page(sessionID)
	if err != nil {
		return nil, err
	}
	shot, err := page.Screenshot(playwright.PageScreenshotOptions{})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return shot, nil
}

// CurrentURL implements agent.Actuator.
func (r *Runner) CurrentURL(ctx context.Context, sessionID string) (string, error) {
	page, err := r.page(sessionID)
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (r *Runner) doGoto(page playwright.Page, url string) (agent.ActionResult, error) {
	if url == "" {
		return agent.ActionResult{}, fmt.Errorf("GOTO requires a URL")
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeoutMs),
	}); err != nil {
		return agent.ActionResult{}, fmt.Errorf("goto %s: %w", url, err)
	}
	return agent.ActionResult{Text: page.URL()}, nil
}

// doAct executes one interaction. The instruction grammar is
// "<verb> <selector> [argument]" with verbs click, fill, press, hover,
// and select.
func (r *Runner) doAct(page playwright.Page, instruction string) (agent.ActionResult, error) {
	verb, selector, arg, err := parseAct(instruction)
	if err != nil {
		return agent.ActionResult{}, err
	}

	locator := page.Locator(selector).First()
	if err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(actionTimeoutMs),
	}); err != nil {
		return agent.ActionResult{}, fmt.Errorf("element %s not visible: %w", selector, err)
	}

	switch verb {
	case "click":
		err = locator.Click()
	case "fill":
		err = locator.Fill(arg)
	case "press":
		err = locator.Press(arg)
	case "hover":
		err = locator.Hover()
	case "select":
		_, err = locator.SelectOption(playwright.SelectOptionValues{Values: &[]string{arg}})
	default:
		return agent.ActionResult{}, fmt.Errorf("unknown action verb %q", verb)
	}
	if err != nil {
		return agent.ActionResult{}, fmt.Errorf("%s %s: %w", verb, selector, err)
	}

	page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(actionTimeoutMs),
	})
	return agent.ActionResult{Text: fmt.Sprintf("%s %s", verb, selector)}, nil
}

func (r *Runner) doExtract(page playwright.Page, selector string) (agent.ActionResult, error) {
	if selector == "" {
		selector = "body"
	}
	text, err := page.Locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(actionTimeoutMs),
	})
	if err != nil {
		return agent.ActionResult{}, fmt.Errorf("extract %s: %w", selector, err)
	}
	text = strings.TrimSpace(text)
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars]
	}
	return agent.ActionResult{Text: text}, nil
}

func (r *Runner) doObserve(page playwright.Page) (agent.ActionResult, error) {
	locators, err := page.Locator("a, button, input, select, textarea, [role=button]").All()
	if err != nil {
		return agent.ActionResult{}, fmt.Errorf("observe: %w", err)
	}

	var observations []agent.Observation
	for i, locator := range locators {
		if i >= 50 {
			break
		}
		visible, err := locator.IsVisible()
		if err != nil || !visible {
			continue
		}
		label, _ := locator.InnerText()
		label = strings.TrimSpace(label)
		if label == "" {
			if placeholder, err := locator.GetAttribute("placeholder"); err == nil {
				label = placeholder
			}
		}
		selector, err := elementSelector(locator)
		if err != nil {
			continue
		}
		observations = append(observations, agent.Observation{
			Selector:    selector,
			Description: label,
		})
	}
	return agent.ActionResult{Observations: observations}, nil
}

func (r *Runner) doNavback(page playwright.Page) (agent.ActionResult, error) {
	if _, err := page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeoutMs),
	}); err != nil {
		return agent.ActionResult{}, fmt.Errorf("navigate back: %w", err)
	}
	return agent.ActionResult{Text: page.URL()}, nil
}

func doWait(page playwright.Page, instruction string) (agent.ActionResult, error) {
	ms := defaultWaitMs
	if instruction != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(instruction)); err == nil && parsed > 0 {
			ms = parsed
		}
	}
	if ms > maxWaitMs {
		ms = maxWaitMs
	}
	page.WaitForTimeout(float64(ms))
	return agent.ActionResult{Text: fmt.Sprintf("waited %dms", ms)}, nil
}

// elementSelector derives a stable selector for an observed element,
// preferring id, then name, then a tag with its visible text.
func elementSelector(locator playwright.Locator) (string, error) {
	if id, err := locator.GetAttribute("id"); err == nil && id != "" {
		return "#" + id, nil
	}
	tag, err := locator.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return "", err
	}
	tagName, _ := tag.(string)
	if tagName == "" {
		return "", fmt.Errorf("no tag name")
	}
	if name, err := locator.GetAttribute("name"); err == nil && name != "" {
		return fmt.Sprintf("%s[name=%q]", tagName, name), nil
	}
	if text, err := locator.InnerText(); err == nil {
		text = strings.TrimSpace(text)
		if text != "" && len(text) <= 40 {
			return fmt.Sprintf("%s:has-text(%q)", tagName, text), nil
		}
	}
	return tagName, nil
}

// parseAct splits an ACT instruction into verb, selector, and argument.
func parseAct(instruction string) (verb, selector, arg string, err error) {
	fields := strings.Fields(strings.TrimSpace(instruction))
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("ACT instruction %q needs a verb and a selector", instruction)
	}
	verb = strings.ToLower(fields[0])
	selector = fields[1]
	if len(fields) > 2 {
		arg = strings.Join(fields[2:], " ")
	}
	switch verb {
	case "fill", "press", "select":
		if arg == "" {
			return "", "", "", fmt.Errorf("ACT %s requires an argument", verb)
		}
	}
	return verb, selector, arg, nil
}

var _ agent.Actuator = (*Runner)(nil)
