// Package http implements a minimal polling domain.Feeder against an
// OpenProcurement-style "changes feed" HTTP API: resources_api_server,
// resources_api_version and resource select the endpoint, extra_params are
// forwarded as query parameters, and up_wait_sleep (validated >= 30s at
// config load, honored here rather than by FeederTask per spec.md §4.D) is
// the pause between polls that return no new data.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// page is the shape of one changes-feed response page.
type page struct {
	Data []struct {
		ID                    string                 `json:"id"`
		DateModified          time.Time              `json:"dateModified"`
		ProcurementMethodType string                 `json:"procurementMethodType"`
		Data                  map[string]interface{} `json:"data"`
	} `json:"data"`
	NextPage struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// Feeder polls an upstream changes feed and yields (priority, item) pairs in
// feed order: priority is the item's position within the page it arrived in,
// so within a page earlier-listed items are dispatched first, matching
// "priority is a hint, not a guarantee" (spec.md §1 non-goals).
type Feeder struct {
	Client      *http.Client
	BaseURL     string
	Version     string
	Resource    string
	ExtraParams map[string]string
	UpWaitSleep time.Duration

	offset string
	buffer []bufferedItem
}

type bufferedItem struct {
	priority int
	item     domain.ResourceItem
}

// New builds an HTTP feeder. client may be nil, in which case http.DefaultClient is used.
func New(client *http.Client, baseURL, version, resource string, extraParams map[string]string, upWaitSleep time.Duration) *Feeder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Feeder{
		Client:      client,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Version:     version,
		Resource:    resource,
		ExtraParams: extraParams,
		UpWaitSleep: upWaitSleep,
	}
}

// Next returns the next buffered item, polling and waiting at the head of
// the stream as needed. It never reports ok=false on its own: an upstream
// changes feed is unbounded, so exhaustion only happens via ctx.
func (f *Feeder) Next(ctx context.Context) (int, domain.ResourceItem, bool, error) {
	for len(f.buffer) == 0 {
		n, err := f.poll(ctx)
		if err != nil {
			return 0, domain.ResourceItem{}, false, err
		}
		if n > 0 {
			continue
		}
		select {
		case <-time.After(f.UpWaitSleep):
		case <-ctx.Done():
			return 0, domain.ResourceItem{}, false, ctx.Err()
		}
	}

	next := f.buffer[0]
	f.buffer = f.buffer[1:]
	return next.priority, next.item, true, nil
}

// poll fetches one page, buffers its items, and advances the cursor.
// Returns the number of items buffered.
func (f *Feeder) poll(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feeder: unexpected status %d from %s", resp.StatusCode, f.Resource)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, fmt.Errorf("feeder: decode response: %w", err)
	}

	for i, d := range p.Data {
		f.buffer = append(f.buffer, bufferedItem{
			priority: i,
			item: domain.ResourceItem{
				ID:                    d.ID,
				DateModified:          d.DateModified,
				ProcurementMethodType: d.ProcurementMethodType,
				Data:                  d.Data,
			},
		})
	}
	if p.NextPage.Offset != "" {
		f.offset = p.NextPage.Offset
	}
	return len(p.Data), nil
}

func (f *Feeder) url() string {
	q := url.Values{}
	for k, v := range f.ExtraParams {
		q.Set(k, v)
	}
	q.Set("feed", "changes")
	if f.offset != "" {
		q.Set("offset", f.offset)
	}
	return fmt.Sprintf("%s/api/%s/%s?%s", f.BaseURL, f.Version, f.Resource, q.Encode())
}
