// Package reference provides thin, reference domain.Handler implementations
// for each real OpenProcurement procurementMethodType. Handler plugins are
// an out-of-scope collaborator per spec.md §1: the core only routes items to
// them by ProcurementMethodType, so these intentionally do little beyond a
// type-specific enrichment stamp followed by storage.Upsert.
package reference

import (
	"context"
	"fmt"
	"time"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// MethodTypes lists every procurementMethodType this package ships a
// reference handler for.
var MethodTypes = []string{
	"belowThreshold",
	"aboveThresholdUA",
	"aboveThresholdEU",
	"negotiation",
	"negotiation.quick",
	"reporting",
	"esco",
}

// Handler enriches an item with its procurementMethodType and the time it
// was handled, then persists it via storage.Upsert.
type Handler struct {
	MethodType string
}

// New builds a reference Handler for one procurementMethodType.
func New(methodType string) *Handler {
	return &Handler{MethodType: methodType}
}

// Handle stamps the item and upserts it into storage. Real handler plugins
// would fetch the full resource document and run type-specific enrichment
// here; this reference implementation just records that it ran.
func (h *Handler) Handle(ctx context.Context, item domain.ResourceItem, storage domain.Storage) error {
	if item.Data == nil {
		item.Data = make(map[string]interface{})
	}
	item.Data["handledBy"] = h.MethodType
	item.Data["handledAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := storage.Upsert(ctx, item); err != nil {
		return fmt.Errorf("op=reference.Handle: procurementMethodType=%s: %w", h.MethodType, err)
	}
	return nil
}

// Registry builds the {procurementMethodType -> Handler} map the core's
// WorkerPool is injected with. When allow is non-empty, only the named
// method types are registered, matching the config's optional `handlers`
// allow-list (spec.md §6).
func Registry(allow []string) map[string]domain.Handler {
	methodTypes := MethodTypes
	if len(allow) > 0 {
		allowed := make(map[string]bool, len(allow))
		for _, name := range allow {
			allowed[name] = true
		}
		methodTypes = nil
		for _, mt := range MethodTypes {
			if allowed[mt] {
				methodTypes = append(methodTypes, mt)
			}
		}
	}

	reg := make(map[string]domain.Handler, len(methodTypes))
	for _, mt := range methodTypes {
		reg[mt] = New(mt)
	}
	return reg
}
