package domain

import "time"

// ResourceClass is a named bucket against which the hosting API enforces an
// independent rate limit.
type ResourceClass string

const (
	ResourceCore                ResourceClass = "core"
	ResourceSearch              ResourceClass = "search"
	ResourceGraphQL             ResourceClass = "graphql"
	ResourceIntegrationManifest ResourceClass = "integration_manifest"
	ResourceSourceImport        ResourceClass = "source_import"
)

// ResourceClasses lists every tracked class.
var ResourceClasses = []ResourceClass{
	ResourceCore,
	ResourceSearch,
	ResourceGraphQL,
	ResourceIntegrationManifest,
	ResourceSourceImport,
}

// QuotaSnapshot is the limit/remaining/reset triple for one resource class.
// Transient cache state; the authoritative values always live in the hosting
// service's response headers. Persisted only for observability.
type QuotaSnapshot struct {
	Class     ResourceClass `json:"class"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Reset     time.Time     `json:"reset"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Exhausted reports whether no quota remains in this class.
func (q QuotaSnapshot) Exhausted() bool {
	return q.Limit > 0 && q.Remaining == 0
}

// Fraction returns remaining/limit, or 1 when the limit is unknown.
func (q QuotaSnapshot) Fraction() float64 {
	if q.Limit <= 0 {
		return 1
	}
	return float64(q.Remaining) / float64(q.Limit)
}

// QuotaAlertLevel classifies a threshold crossing.
type QuotaAlertLevel string

const (
	QuotaAlertWarning   QuotaAlertLevel = "warning"   // remaining/limit <= 10%
	QuotaAlertCritical  QuotaAlertLevel = "critical"  // remaining/limit <= 5%
	QuotaAlertExhausted QuotaAlertLevel = "exhausted" // remaining == 0
)

// QuotaAlert notifies registered handlers of a threshold crossing.
type QuotaAlert struct {
	Class     ResourceClass   `json:"class"`
	Level     QuotaAlertLevel `json:"level"`
	Limit     int             `json:"limit"`
	Remaining int             `json:"remaining"`
	Reset     time.Time       `json:"reset"`
}
