package browserpost

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"realestatesync/registry"
	"realestatesync/settings"
)

// strategy is one independent attempt at locating and acting on a page
// element. Strategies are tried in order until one reports success; no
// single selector path can be trusted on a third-party site.
type strategy struct {
	name   string
	script string
}

// credentialStrategies fill the username and password inputs. Each script
// is a function(user, pass) returning true when both fields were set.
var credentialStrategies = []strategy{
	{
		name: "known-ids",
		script: `(function(user, pass) {
			var u = document.querySelector('#email') || document.querySelector('#username');
			var p = document.querySelector('#password');
			if (!u || !p) return false;
			u.value = user;  u.dispatchEvent(new Event('input', {bubbles:true}));
			p.value = pass;  p.dispatchEvent(new Event('input', {bubbles:true}));
			return true;
		})`,
	},
	{
		name: "typed-inputs",
		script: `(function(user, pass) {
			var u = document.querySelector('input[type="email"]') ||
			        document.querySelector('input[name*="user" i]') ||
			        document.querySelector('input[name*="email" i]');
			var p = document.querySelector('input[type="password"]');
			if (!u || !p) return false;
			u.value = user;  u.dispatchEvent(new Event('input', {bubbles:true}));
			p.value = pass;  p.dispatchEvent(new Event('input', {bubbles:true}));
			return true;
		})`,
	},
	{
		name: "heuristic-scan",
		script: `(function(user, pass) {
			var p = document.querySelector('input[type="password"]');
			if (!p) return false;
			var inputs = Array.prototype.slice.call(
				document.querySelectorAll('input:not([type="hidden"])'));
			var idx = inputs.indexOf(p);
			var u = null;
			for (var i = idx - 1; i >= 0; i--) {
				var t = (inputs[i].type || 'text').toLowerCase();
				if (t === 'text' || t === 'email') { u = inputs[i]; break; }
			}
			if (!u) return false;
			u.value = user;  u.dispatchEvent(new Event('input', {bubbles:true}));
			p.value = pass;  p.dispatchEvent(new Event('input', {bubbles:true}));
			return true;
		})`,
	},
}

// clickStrategies locate and click a form's primary action control. Each
// script is a function(phrases) returning true when something was clicked;
// phrases is a lowercase list of button texts to match heuristically.
var clickStrategies = []strategy{
	{
		name: "submit-control",
		script: `(function(phrases) {
			var btn = document.querySelector('button[type="submit"]') ||
			          document.querySelector('input[type="submit"]');
			if (!btn) return false;
			btn.click();
			return true;
		})`,
	},
	{
		name: "text-match",
		script: `(function(phrases) {
			var controls = document.querySelectorAll('button, a.btn, input[type="button"]');
			for (var i = 0; i < controls.length; i++) {
				var text = (controls[i].innerText || controls[i].value || '').trim().toLowerCase();
				for (var j = 0; j < phrases.length; j++) {
					if (text.indexOf(phrases[j]) !== -1) { controls[i].click(); return true; }
				}
			}
			return false;
		})`,
	},
}

// loginButtonPhrases covers the English and Albanian labels seen on the
// supported sites.
var loginButtonPhrases = []string{"log in", "login", "sign in", "hyr", "identifikohu"}

// submitButtonPhrases likewise, for the posting form.
var submitButtonPhrases = []string{"submit", "post", "publish", "publiko", "posto", "ruaj"}

// loginSignals is the page state sampled after a login attempt.
type loginSignals struct {
	URL              string `json:"url"`
	HasLogoutLink    bool   `json:"hasLogoutLink"`
	HasPasswordField bool   `json:"hasPasswordField"`
	HasAccountMarker bool   `json:"hasAccountMarker"`
}

const loginSignalsScript = `(function() {
	return {
		url: window.location.href,
		hasLogoutLink: document.querySelector('a[href*="logout"]') !== null,
		hasPasswordField: document.querySelector('input[type="password"]') !== null,
		hasAccountMarker: document.querySelector(
			'a[href*="/account"], a[href*="/profile"], .user-menu, [data-testid="account-menu"]') !== null
	};
})()`

// loggedIn decides whether the sampled signals indicate an authenticated
// session. No individual signal is reliable on a third-party site, so any
// positive marker wins, and the absence of a login form off the login page
// counts as a weak positive.
func loggedIn(s loginSignals) bool {
	if s.HasLogoutLink || s.HasAccountMarker {
		return true
	}
	offLoginPage := !strings.Contains(strings.ToLower(s.URL), "login")
	return offLoginPage && !s.HasPasswordField
}

// login navigates to the login page and attempts each credential strategy
// in sequence until the post-attempt signals indicate success.
func (a *Adapter) login(ctx context.Context, target registry.Target, cfg settings.Config) error {
	loginURL := target.BaseURL + "/login"
	if err := chromedp.Run(ctx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("navigate to %s: %w", loginURL, err)
	}
	if err := a.waitForAny(ctx, `input[type="password"]`, "login form"); err != nil {
		return err
	}

	for _, strat := range credentialStrategies {
		var filled bool
		call := fmt.Sprintf("%s(%s, %s)",
			strat.script, jsString(cfg.Username), jsString(cfg.Password))
		if err := chromedp.Run(ctx, chromedp.Evaluate(call, &filled)); err != nil {
			return fmt.Errorf("credential strategy %s: %w", strat.name, err)
		}
		if !filled {
			a.logger.Debug("[browserpost] %s: credential strategy %s found no fields",
				target.Name, strat.name)
			continue
		}

		if err := a.clickAny(ctx, loginButtonPhrases); err != nil {
			return fmt.Errorf("click login button: %w", err)
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(3*time.Second)); err != nil {
			return err
		}

		var signals loginSignals
		if err := chromedp.Run(ctx, chromedp.Evaluate(loginSignalsScript, &signals)); err != nil {
			return fmt.Errorf("sample login signals: %w", err)
		}
		if loggedIn(signals) {
			return nil
		}
		a.logger.Warn("[browserpost] %s: strategy %s submitted but login not detected",
			target.Name, strat.name)
	}

	return fmt.Errorf("login not detected after trying all %d strategies", len(credentialStrategies))
}

// clickAny runs the click strategies in order until one clicks something.
func (a *Adapter) clickAny(ctx context.Context, phrases []string) error {
	encoded, err := json.Marshal(phrases)
	if err != nil {
		return err
	}

	for _, strat := range clickStrategies {
		var clicked bool
		call := fmt.Sprintf("%s(%s)", strat.script, encoded)
		if err := chromedp.Run(ctx, chromedp.Evaluate(call, &clicked)); err != nil {
			return fmt.Errorf("click strategy %s: %w", strat.name, err)
		}
		if clicked {
			return nil
		}
	}
	return fmt.Errorf("no clickable control matched %v", phrases)
}

// jsString renders a Go string as a safely quoted JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
