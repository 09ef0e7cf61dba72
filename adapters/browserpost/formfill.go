package browserpost

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"realestatesync/adapters"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
)

// defaultSelectors is the field→selector mapping shared by the supported
// sites; per-target overrides come from the settings row's
// additionalConfig entries keyed "selector.<field>".
var defaultSelectors = map[string]string{
	"title":         "#title",
	"description":   "#description",
	"price":         "#price",
	"bedrooms":      "#bedrooms",
	"bathrooms":     "#bathrooms",
	"area":          "#area",
	"location":      "#location",
	"property_type": "#property_type",
}

// defaultPostPaths maps a target to its posting-form path.
var defaultPostPaths = map[string]string{
	"merrjep":  "/post-ad",
	"indomio":  "/user/properties/add",
	"njoftime": "/post-ad",
}

// fieldOrder keeps the fill sequence deterministic.
var fieldOrder = []string{
	"title", "description", "price", "bedrooms", "bathrooms",
	"area", "location", "property_type",
}

// setFieldScript sets a value on the element for a selector and dispatches
// both change and input events so the site's reactive scripts observe the
// update. Select elements are matched by case-insensitive substring of the
// option text, never by exact value. Returns an empty string on success or
// an error description.
const setFieldScript = `(function(selector, value) {
	var el = document.querySelector(selector);
	if (!el) return 'element not found';
	var tag = el.tagName.toLowerCase();
	if (tag === 'select') {
		var want = value.toLowerCase();
		var matched = false;
		for (var i = 0; i < el.options.length; i++) {
			if (el.options[i].text.toLowerCase().indexOf(want) !== -1) {
				el.selectedIndex = i;
				matched = true;
				break;
			}
		}
		if (!matched) return 'no option matching "' + value + '"';
	} else if (tag === 'input' && el.type === 'file') {
		return 'file input';
	} else {
		el.value = value;
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return '';
})`

// fieldValues renders the property fields as form-ready strings.
func fieldValues(p *models.Property) map[string]string {
	return map[string]string{
		"title":         p.Title,
		"description":   p.Description,
		"price":         adapters.FormatPrice(p.Price),
		"bedrooms":      strconv.Itoa(p.Bedrooms),
		"bathrooms":     strconv.Itoa(p.Bathrooms),
		"area":          strconv.FormatFloat(p.Area, 'f', -1, 64),
		"location":      p.City,
		"property_type": p.PropertyType,
	}
}

// selectorFor resolves the selector for a field, preferring a per-target
// override from additionalConfig.
func selectorFor(field string, cfg settings.Config) string {
	if sel, ok := cfg.AdditionalConfig["selector."+field]; ok && sel != "" {
		return sel
	}
	return defaultSelectors[field]
}

// postPath resolves the posting-form path for a target.
func postPath(target registry.Target, cfg settings.Config) string {
	if p, ok := cfg.AdditionalConfig["postPath"]; ok && p != "" {
		return p
	}
	if p, ok := defaultPostPaths[target.Name]; ok {
		return p
	}
	return "/post-ad"
}

// fillForm fills every mapped field, waiting for each element to appear
// before writing to it. Fields with an empty value are skipped; file
// inputs are a known limitation and reported as skipped, not failed.
func (a *Adapter) fillForm(ctx context.Context, p *models.Property, target registry.Target, cfg settings.Config) error {
	values := fieldValues(p)

	for _, field := range fieldOrder {
		value := values[field]
		if value == "" {
			continue
		}
		selector := selectorFor(field, cfg)
		if selector == "" {
			continue
		}

		if err := a.waitForAny(ctx, selector, "field "+field); err != nil {
			// Not every site has every field; a missing optional field is
			// logged and skipped, but title and description are mandatory.
			if field == "title" || field == "description" {
				return err
			}
			a.logger.Warn("[browserpost] %s: field %s (%s) never appeared, skipping: %v",
				target.Name, field, selector, err)
			continue
		}

		var result string
		call := fmt.Sprintf("%s(%s, %s)", setFieldScript, jsString(selector), jsString(value))
		if err := chromedp.Run(ctx, chromedp.Evaluate(call, &result)); err != nil {
			return fmt.Errorf("set field %s: %w", field, err)
		}
		switch result {
		case "":
			a.logger.Debug("[browserpost] %s: set %s", target.Name, field)
		case "file input":
			a.logger.Warn("[browserpost] %s: %s is a file input, skipping (images are not auto-filled)",
				target.Name, field)
		default:
			return fmt.Errorf("set field %s (%s): %s", field, selector, result)
		}
	}
	return nil
}

// submitState is the page state sampled after clicking submit.
type submitState struct {
	URL              string `json:"url"`
	PageText         string `json:"pageText"`
	HasSuccessBanner bool   `json:"hasSuccessBanner"`
	HasErrorBanner   bool   `json:"hasErrorBanner"`
	PostURL          string `json:"postUrl"`
}

const submitStateScript = `(function() {
	var link = document.querySelector('a[href*="/listing/"]');
	return {
		url: window.location.href,
		pageText: (document.body ? document.body.innerText : '').substring(0, 4000),
		hasSuccessBanner: document.querySelector('.alert-success, .success-message') !== null,
		hasErrorBanner: document.querySelector('.alert-danger, .alert-error, .error-message') !== null,
		postUrl: link ? link.href : ''
	};
})()`

type submitVerdict int

const (
	verdictUnknown submitVerdict = iota
	verdictSuccess
	verdictFailure
)

// successPhrases and failurePhrases cover the confirmation texts of the
// supported sites, in their languages.
var successPhrases = []string{
	"listing posted successfully",
	"posted successfully",
	"u publikua me sukses",
	"njoftimi u shtua",
	"shpallja u publikua",
}

var failurePhrases = []string{
	"could not be posted",
	"nuk u publikua",
	"ka ndodhur nje gabim",
	"ka ndodhur një gabim",
	"something went wrong",
}

// connectivityPhrases mark the transient connectivity banner some sites
// show mid-submit; it warrants exactly one retry of the submit step.
var connectivityPhrases = []string{
	"no internet connection",
	"connection lost",
	"nuk ka lidhje interneti",
	"err_internet_disconnected",
}

// classifySubmit weighs the sampled signals. Explicit failure markers win
// over weak success markers so a partial page never reads as posted.
func classifySubmit(s submitState) submitVerdict {
	text := strings.ToLower(s.PageText)

	for _, phrase := range failurePhrases {
		if strings.Contains(text, phrase) {
			return verdictFailure
		}
	}
	if s.HasErrorBanner {
		return verdictFailure
	}

	if s.HasSuccessBanner || s.PostURL != "" {
		return verdictSuccess
	}
	for _, phrase := range successPhrases {
		if strings.Contains(text, phrase) {
			return verdictSuccess
		}
	}
	if u := strings.ToLower(s.URL); strings.Contains(u, "/listing/") || strings.Contains(u, "/property") {
		return verdictSuccess
	}
	return verdictUnknown
}

// hasConnectivityBanner reports whether the page shows the transient
// connectivity error some sites display mid-submit.
func hasConnectivityBanner(pageText string) bool {
	text := strings.ToLower(pageText)
	for _, phrase := range connectivityPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// submit clicks the submit control and classifies the result with a
// bounded post-click wait. The connectivity banner triggers one retry of
// the submit step; any other failure is final.
func (a *Adapter) submit(ctx context.Context, target registry.Target) (string, error) {
	state, err := a.submitOnce(ctx)
	if err != nil {
		return "", err
	}

	if classifySubmit(*state) != verdictSuccess && hasConnectivityBanner(state.PageText) {
		a.logger.Warn("[browserpost] %s: connectivity banner detected, retrying submit once", target.Name)
		state, err = a.submitOnce(ctx)
		if err != nil {
			return "", err
		}
	}

	switch classifySubmit(*state) {
	case verdictSuccess:
		return extractPostURL(*state), nil
	case verdictFailure:
		return "", fmt.Errorf("site reported the listing was not posted")
	default:
		return "", fmt.Errorf("could not confirm successful posting")
	}
}

func (a *Adapter) submitOnce(ctx context.Context) (*submitState, error) {
	if err := a.clickAny(ctx, submitButtonPhrases); err != nil {
		return nil, err
	}

	// Bounded settle time after the click; confirmation pages often load
	// fresh, so mutation observation on the old document is not enough.
	if err := chromedp.Run(ctx, chromedp.Sleep(5*time.Second)); err != nil {
		return nil, err
	}

	var state submitState
	if err := chromedp.Run(ctx, chromedp.Evaluate(submitStateScript, &state)); err != nil {
		return nil, fmt.Errorf("sample submit state: %w", err)
	}
	return &state, nil
}

// extractPostURL prefers an explicit listing link, falling back to the
// current URL when it already points at the created listing.
func extractPostURL(s submitState) string {
	if s.PostURL != "" {
		return s.PostURL
	}
	if u := strings.ToLower(s.URL); strings.Contains(u, "/listing/") || strings.Contains(u, "/property") {
		return s.URL
	}
	return ""
}
