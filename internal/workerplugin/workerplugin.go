// Package workerplugin selects the item-URL builder a WorkerPool uses to
// fetch one resource item, keyed by worker_config.worker_type.
package workerplugin

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Config carries the resource-API coordinates a worker plugin needs to
// build item URLs, mirroring config.Config's resources_api_* fields.
type Config struct {
	BaseURL     string
	Version     string
	Resource    string
	ExtraParams map[string]string
}

// Factory builds an item-URL function for one worker_type.
type Factory func(cfg Config) func(item domain.ResourceItem) string

// Registry maps worker_type to its Factory.
var Registry = map[string]Factory{
	"basic": basic,
}

// Build resolves workerType via Registry.
func Build(workerType string, cfg Config) (func(item domain.ResourceItem) string, error) {
	factory, ok := Registry[workerType]
	if !ok {
		return nil, fmt.Errorf("workerplugin: unknown worker_type %q", workerType)
	}
	return factory(cfg), nil
}

// basic builds the OpenProcurement single-resource document endpoint:
// "<base>/api/<version>/<resource>/<id>", forwarding extra_params as query
// parameters on every request.
func basic(cfg Config) func(item domain.ResourceItem) string {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return func(item domain.ResourceItem) string {
		q := url.Values{}
		for k, v := range cfg.ExtraParams {
			q.Set(k, v)
		}
		return fmt.Sprintf("%s/api/%s/%s/%s?%s", base, cfg.Version, cfg.Resource, item.ID, q.Encode())
	}
}
