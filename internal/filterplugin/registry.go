// Package filterplugin selects a domain.FilterPlugin by
// filter_config.filter_type. An empty filter_type means no filter stage is
// configured; cmd/bridge then aliases the main queue to the input queue
// directly (spec.md §4.E), so the registry has no "none" entry.
package filterplugin

import (
	"fmt"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/filterplugin/datemodified"
)

// Factory builds a domain.FilterPlugin for one filter_type.
type Factory func() domain.FilterPlugin

// Registry maps filter_type to its Factory.
var Registry = map[string]Factory{
	"date_modified": func() domain.FilterPlugin { return datemodified.New() },
}

// Build resolves filterType via Registry, or returns (nil, nil) when
// filterType is empty.
func Build(filterType string) (domain.FilterPlugin, error) {
	if filterType == "" {
		return nil, nil
	}
	factory, ok := Registry[filterType]
	if !ok {
		return nil, fmt.Errorf("filterplugin: unknown filter_type %q", filterType)
	}
	return factory(), nil
}
