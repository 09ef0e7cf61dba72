// Package social publishes listings to a Facebook page via the Graph API:
// photos are uploaded unpublished first, then a feed post attaches the
// surviving media handles.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"realestatesync/adapters"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/settings"
	"realestatesync/utils"
)

// maxImages bounds how many photos are attached to one post.
const maxImages = 10

// Adapter publishes listings to the social graph target.
type Adapter struct {
	logger   *utils.Logger
	client   *http.Client
	graphURL string

	uploadWorkers int
	uploadRateMs  int
}

// New creates a social Adapter talking to the given Graph API base URL.
func New(logger *utils.Logger, graphURL string, timeout time.Duration, uploadWorkers, uploadRateMs int) *Adapter {
	return &Adapter{
		logger:        logger,
		client:        adapters.NewHTTPClient(timeout),
		graphURL:      strings.TrimRight(graphURL, "/"),
		uploadWorkers: uploadWorkers,
		uploadRateMs:  uploadRateMs,
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads the property's images and creates the feed post on the
// first configured page. Individual image-upload failures are dropped, not
// fatal; zero configured pages is the "No Facebook pages configured" error.
func (a *Adapter) Publish(ctx context.Context, p *models.Property, _ registry.Target, cfg settings.Config) adapters.Outcome {
	if len(cfg.Pages) == 0 {
		return adapters.Failure("No Facebook pages configured")
	}
	// Always the first configured page; multi-page fan-out is deliberately
	// unsupported until the semantics are agreed.
	page := cfg.Pages[0]

	mediaIDs := a.uploadImages(ctx, page, p.Images)
	a.logger.Info("[social] property %s: %d/%d images uploaded",
		p.ID, len(mediaIDs), min(len(p.Images), maxImages))

	postID, err := a.createFeedPost(ctx, page, BuildCaption(p), mediaIDs)
	if err != nil {
		return adapters.Failure(err.Error())
	}

	return adapters.Successful("https://www.facebook.com/" + postID)
}

// TestConnection verifies the first configured page token against the
// Graph API without posting anything.
func (a *Adapter) TestConnection(ctx context.Context, _ registry.Target, cfg settings.Config) error {
	if len(cfg.Pages) == 0 {
		return fmt.Errorf("No Facebook pages configured")
	}
	page := cfg.Pages[0]

	probe := fmt.Sprintf("%s/%s?fields=id&access_token=%s",
		a.graphURL, page.ID, url.QueryEscape(page.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s", graphErrorMessage(body, resp.StatusCode))
	}
	return nil
}

// uploadImages uploads up to maxImages photos as unpublished media through
// the worker pool. Results keep image order; failed uploads are dropped.
func (a *Adapter) uploadImages(ctx context.Context, page settings.PageConfig, images []string) []string {
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	results := make([]string, len(images))
	pool := utils.NewWorkerPool(a.uploadWorkers, a.uploadRateMs)
	var mu sync.Mutex

	for i, img := range images {
		idx, imageURL := i, img
		pool.Submit(func() {
			id, err := a.uploadImage(ctx, page, imageURL)
			if err != nil {
				a.logger.Warn("[social] image upload failed, dropping %s: %v", imageURL, err)
				return
			}
			mu.Lock()
			results[idx] = id
			mu.Unlock()
		})
	}
	pool.Wait()

	ids := make([]string, 0, len(results))
	for _, id := range results {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (a *Adapter) uploadImage(ctx context.Context, page settings.PageConfig, imageURL string) (string, error) {
	form := url.Values{}
	form.Set("url", imageURL)
	form.Set("published", "false")
	form.Set("access_token", page.AccessToken)

	body, err := a.postForm(ctx, fmt.Sprintf("%s/%s/photos", a.graphURL, page.ID), form)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", fmt.Errorf("photo upload returned no media id")
	}
	return out.ID, nil
}

func (a *Adapter) createFeedPost(ctx context.Context, page settings.PageConfig, caption string, mediaIDs []string) (string, error) {
	form := url.Values{}
	form.Set("message", caption)
	form.Set("access_token", page.AccessToken)
	for i, id := range mediaIDs {
		form.Set("attached_media["+strconv.Itoa(i)+"]", fmt.Sprintf(`{"media_fbid":%q}`, id))
	}

	body, err := a.postForm(ctx, fmt.Sprintf("%s/%s/feed", a.graphURL, page.ID), form)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", fmt.Errorf("feed post returned no post id")
	}
	return out.ID, nil
}

// postForm executes a form POST and surfaces the Graph error message
// verbatim when one is available.
func (a *Adapter) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s", graphErrorMessage(body, resp.StatusCode))
	}
	return body, nil
}

// graphErrorMessage extracts the third-party error message verbatim, with
// a generic fallback when the body is not a Graph error envelope.
func graphErrorMessage(body []byte, status int) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return ge.Error.Message
	}
	return fmt.Sprintf("graph API returned status %d", status)
}
