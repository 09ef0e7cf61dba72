// Package importer builds draft properties from third-party listing pages
// using per-site scraper configurations. An imported property is never
// auto-published: it arrives with a full pending distribution map and
// waits for an explicit publish.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"github.com/google/uuid"

	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/utils"
)

// Importer scrapes listing pages into Property drafts.
type Importer struct {
	logger  *utils.Logger
	configs *ConfigStore
	timeout time.Duration
}

// New creates an Importer reading scraper configs from the given store.
func New(logger *utils.Logger, configs *ConfigStore, timeout time.Duration) *Importer {
	return &Importer{logger: logger, configs: configs, timeout: timeout}
}

// Import fetches url with the named scraper config and maps the scraped
// fields into a new unpublished Property. The url argument overrides the
// config's own URL when non-empty.
func (i *Importer) Import(ctx context.Context, configName, url string) (*models.Property, error) {
	cfg, err := i.configs.Get(configName)
	if err != nil {
		return nil, err
	}
	if url == "" {
		url = cfg.URL
	}
	if url == "" {
		return nil, fmt.Errorf("scraper config %q has no URL and none was given", configName)
	}

	scraped, err := i.scrape(ctx, cfg, url)
	if err != nil {
		return nil, err
	}
	if scraped.text["title"] == "" {
		return nil, fmt.Errorf("no title found at %s with config %q", url, configName)
	}

	now := time.Now()
	p := &models.Property{
		ID:            uuid.NewString(),
		Title:         scraped.text["title"],
		Description:   scraped.text["description"],
		Price:         parsePrice(scraped.text["price"]),
		Bedrooms:      parseCount(scraped.text["bedrooms"]),
		Bathrooms:     parseCount(scraped.text["bathrooms"]),
		Area:          parsePrice(scraped.text["area"]),
		Address:       scraped.text["address"],
		City:          scraped.text["city"],
		State:         scraped.text["state"],
		Zip:           scraped.text["zip"],
		PropertyType:  scraped.text["propertyType"],
		ContactPhone:  scraped.text["contactPhone"],
		ContactEmail:  scraped.text["contactEmail"],
		Features:      scraped.lists["features"],
		Images:        scraped.lists["images"],
		Published:     false,
		Distributions: registry.SeedDistributions(nil),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	i.logger.Info("[importer] imported %q from %s (%d images, %d features)",
		p.Title, url, len(p.Images), len(p.Features))
	return p, nil
}

// scrapedFields separates single-value fields from repeated ones.
type scrapedFields struct {
	text  map[string]string
	lists map[string][]string
}

// scrape visits url once and collects every configured selector. Selector
// keys are the scraped names; FieldMapping renames them to property field
// names before the fields are read.
func (i *Importer) scrape(ctx context.Context, cfg models.ScraperConfig, url string) (*scrapedFields, error) {
	collector := colly.NewCollector(colly.AllowURLRevisit())
	collector.SetRequestTimeout(i.timeout)
	extensions.RandomUserAgent(collector)

	out := &scrapedFields{
		text:  make(map[string]string),
		lists: make(map[string][]string),
	}

	for scrapedName, selector := range cfg.Selectors {
		field := scrapedName
		if mapped, ok := cfg.FieldMapping[scrapedName]; ok {
			field = mapped
		}

		switch field {
		case "images":
			collector.OnHTML(selector, func(e *colly.HTMLElement) {
				if src := e.Attr("src"); src != "" {
					out.lists[field] = append(out.lists[field], e.Request.AbsoluteURL(src))
				}
			})
		case "features":
			collector.OnHTML(selector, func(e *colly.HTMLElement) {
				if text := normaliseText(e.Text); text != "" {
					out.lists[field] = append(out.lists[field], text)
				}
			})
		default:
			collector.OnHTML(selector, func(e *colly.HTMLElement) {
				if out.text[field] == "" {
					out.text[field] = normaliseText(e.Text)
				}
			})
		}
	}

	var fetchErr error
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", url, err)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	return out, nil
}
