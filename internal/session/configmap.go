// configmap.go converts the ordered company config list into a typed map,
// built once when the company payload is received. Duplicate flags resolve
// last-write-wins: the back office emits overrides appended after base
// entries, so the later entry is the effective one. This is a product
// decision, not an inference — see DESIGN.md.
package session

import (
	"encoding/json"

	"github.com/hcm-portal/hcm-portal/internal/backoffice"
)

// Company config flag names.
const (
	FlagPTOEnabled       = "armhr_pto_enabled"
	FlagSwipeclock       = "swipeclock_enabled"
	FlagShowOrgChart     = "show_org_chart"
	FlagBenefits         = "benefits_enrollment_enabled"
	FlagCustomFields     = "custom_fields_enabled"
	FlagCompanyDocuments = "company_documents_enabled"
)

// ConfigMap is a point lookup over company config flags.
type ConfigMap struct {
	values map[string]bool
	data   map[string]json.RawMessage
}

// NewConfigMap builds the flag map from the ordered config list of a company.
// A nil company yields an empty map, so every lookup falls back to its
// declared default.
func NewConfigMap(company *backoffice.Company) *ConfigMap {
	m := &ConfigMap{
		values: make(map[string]bool),
		data:   make(map[string]json.RawMessage),
	}
	if company == nil {
		return m
	}
	for _, entry := range company.Config {
		// Last write wins on duplicate flags.
		m.values[entry.Flag] = entry.Value
		if len(entry.Data) > 0 {
			m.data[entry.Flag] = entry.Data
		}
	}
	return m
}

// Get returns the flag value, or def when the flag is absent.
func (m *ConfigMap) Get(flag string, def bool) bool {
	if v, ok := m.values[flag]; ok {
		return v
	}
	return def
}

// Data returns the optional payload attached to a flag, or nil.
func (m *ConfigMap) Data(flag string) json.RawMessage {
	return m.data[flag]
}

// Has reports whether the flag is present at all.
func (m *ConfigMap) Has(flag string) bool {
	_, ok := m.values[flag]
	return ok
}
