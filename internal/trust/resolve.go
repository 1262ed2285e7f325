package trust

import "trust-service/internal/models"

// Catalog looks up the default impact for an event type label.
type Catalog interface {
	DefaultImpact(eventType string) (float64, bool)
}

// MapCatalog is a Catalog backed by a plain map, as loaded from the
// event_types table.
type MapCatalog map[string]float64

func (m MapCatalog) DefaultImpact(eventType string) (float64, bool) {
	impact, ok := m[eventType]
	return impact, ok
}

// Resolve returns the impact an event contributes to a score. Precedence:
// the event's own impact wins (an explicit zero is still an override);
// otherwise the catalog default for its event type. Events with neither
// return false and are excluded from aggregation; that is resolution
// policy, not an error.
func Resolve(ev models.Event, cat Catalog) (float64, bool) {
	if ev.Impact != nil {
		return *ev.Impact, true
	}
	if ev.EventType == nil || cat == nil {
		return 0, false
	}
	return cat.DefaultImpact(*ev.EventType)
}
