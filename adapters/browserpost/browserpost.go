// Package browserpost drives a headless browser through login, form fill
// and submit on third-party listing sites outside our control. Selector
// paths on such sites are unreliable, so every step tries an ordered list
// of strategies and detects success by a disjunction of signals rather
// than any single marker.
package browserpost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"realestatesync/adapters"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
	"realestatesync/utils"
)

// publishTimeout bounds one whole login+fill+submit run.
const publishTimeout = 3 * time.Minute

// Adapter publishes listings by automating the target site's posting form.
type Adapter struct {
	logger      *utils.Logger
	chromeBin   string
	elementWait time.Duration
	probeClient *http.Client
}

// New creates a browserpost Adapter. chromeBin may be empty, in which case
// the binary is located on PATH at publish time.
func New(logger *utils.Logger, chromeBin string, elementWait time.Duration) *Adapter {
	return &Adapter{
		logger:      logger,
		chromeBin:   chromeBin,
		elementWait: elementWait,
		probeClient: adapters.NewHTTPClient(15 * time.Second),
	}
}

// Publish launches a browser owned exclusively by this call, logs in,
// fills the posting form and submits it. The browser is released on every
// exit path; a timed-out wait is reported as the target's error, never as
// a hang.
func (a *Adapter) Publish(ctx context.Context, p *models.Property, target registry.Target, cfg settings.Config) adapters.Outcome {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	browserCtx, release, err := a.newBrowser(ctx)
	if err != nil {
		return adapters.Failure(fmt.Sprintf("launch browser: %v", err))
	}
	defer release()

	if err := a.login(browserCtx, target, cfg); err != nil {
		return adapters.Failure(classifyAutomationError("login", err))
	}
	a.logger.Info("[browserpost] %s: logged in", target.Name)

	if err := a.openPostingForm(browserCtx, target, cfg); err != nil {
		return adapters.Failure(classifyAutomationError("open posting form", err))
	}

	if err := a.fillForm(browserCtx, p, target, cfg); err != nil {
		return adapters.Failure(classifyAutomationError("fill form", err))
	}
	a.logger.Info("[browserpost] %s: form filled for property %s", target.Name, p.ID)

	postURL, err := a.submit(browserCtx, target)
	if err != nil {
		return adapters.Failure(classifyAutomationError("submit", err))
	}

	a.logger.Info("[browserpost] %s: property %s posted → %s", target.Name, p.ID, postURL)
	return adapters.Successful(postURL)
}

// TestConnection probes the site over plain HTTP; launching a browser for
// a connectivity check would be wasteful.
func (a *Adapter) TestConnection(ctx context.Context, target registry.Target, _ settings.Config) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := a.probeClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", target.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s returned status %d", target.Name, resp.StatusCode)
	}
	return nil
}

// newBrowser builds an exec allocator plus browser context owned by the
// current publish call. The returned release func closes both.
func (a *Adapter) newBrowser(ctx context.Context) (context.Context, func(), error) {
	chromeBin := a.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	release := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// Start the browser eagerly so launch failures surface here rather
	// than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, nil, err
	}
	return browserCtx, release, nil
}

// openPostingForm navigates to the site's posting page and waits for the
// form to render.
func (a *Adapter) openPostingForm(ctx context.Context, target registry.Target, cfg settings.Config) error {
	postURL := target.BaseURL + postPath(target, cfg)

	if err := chromedp.Run(ctx,
		chromedp.Navigate(postURL),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", postURL, err)
	}

	return a.waitForAny(ctx, "form, #title, textarea", "posting form")
}

// waitForAny waits for any of the comma-separated selectors to appear,
// observing DOM mutations rather than sleeping in a loop.
func (a *Adapter) waitForAny(ctx context.Context, selector, what string) error {
	var found bool
	err := chromedp.Run(ctx, chromedp.Poll(
		fmt.Sprintf(`document.querySelector(%q) !== null`, selector),
		&found,
		chromedp.WithPollingMutation(),
		chromedp.WithPollingTimeout(a.elementWait),
	))
	if err != nil {
		return fmt.Errorf("%s did not appear within %s: %w", what, a.elementWait, err)
	}
	if !found {
		return fmt.Errorf("%s did not appear within %s", what, a.elementWait)
	}
	return nil
}

// classifyAutomationError maps context/poll timeouts onto a readable
// message while preserving diagnostic context for everything else.
func classifyAutomationError(step string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Sprintf("%s timed out: %v", step, err)
	}
	return fmt.Sprintf("%s failed: %v", step, err)
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
