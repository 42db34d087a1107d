/*
Package factory provides JSON to Go leave type conversion.

PURPOSE:
  Converts JSON leave type definitions into leave.LeaveType objects. This
  enables catalog configuration without code changes - HR can define leave
  types in JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can modify the catalog
  - Easy integration with admin UI
  - Version control for type definitions
  - Database storage of catalog configs

JSON SCHEMA:
  {
    "id": "annual",
    "name": "Annual Leave",
    "description": "Paid vacation days",
    "is_paid": true,
    "max_days_per_year": 25,
    "advance_notice_days": 14,
    "max_concurrent_requests": 3,
    "requires_approval": true,
    "color": "#4CAF50",
    "is_active": true
  }

KEY FEATURES:
  - Validates required fields
  - Sets sensible defaults (paid, approval required, active)
  - Round-trips back to JSON for the admin API
  - Ships the standard seed catalog

USAGE:
  factory := NewTypeFactory()

  // From JSON string
  lt, err := factory.ParseLeaveType(jsonString)

  // Standard catalog (annual, sick, unpaid, exceptional)
  for _, lt := range factory.NewTypeFactory().StandardCatalog() {
      store.SaveLeaveType(ctx, lt)
  }

SEE ALSO:
  - leave/types.go: LeaveType definition
  - api/handlers.go: Admin endpoints using this factory
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	IsPaid                *bool  `json:"is_paid,omitempty"`                 // default true
	MaxDaysPerYear        *int   `json:"max_days_per_year,omitempty"`       // nil = engine default entitlement
	AdvanceNoticeDays     *int   `json:"advance_notice_days,omitempty"`     // nil = no notice rule
	MaxConcurrentRequests *int   `json:"max_concurrent_requests,omitempty"` // nil = no cap
	RequiresApproval      *bool  `json:"requires_approval,omitempty"`       // default true
	Color                 string `json:"color,omitempty"`
	IsActive              *bool  `json:"is_active,omitempty"` // default true
}

// =============================================================================
// TYPE FACTORY
// =============================================================================

// TypeFactory converts JSON leave types to Go structs.
type TypeFactory struct{}

// NewTypeFactory creates a new leave type factory.
func NewTypeFactory() *TypeFactory {
	return &TypeFactory{}
}

// ParseLeaveType parses a JSON string into a LeaveType.
func (f *TypeFactory) ParseLeaveType(jsonStr string) (*leave.LeaveType, error) {
	var tj LeaveTypeJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return nil, fmt.Errorf("failed to parse leave type JSON: %w", err)
	}
	return f.FromJSON(tj)
}

// FromJSON converts LeaveTypeJSON to leave.LeaveType, applying defaults.
func (f *TypeFactory) FromJSON(tj LeaveTypeJSON) (*leave.LeaveType, error) {
	if tj.ID == "" {
		return nil, fmt.Errorf("leave type requires an id")
	}
	if tj.Name == "" {
		return nil, fmt.Errorf("leave type %q requires a name", tj.ID)
	}
	if tj.MaxDaysPerYear != nil && *tj.MaxDaysPerYear <= 0 {
		return nil, fmt.Errorf("leave type %q: max_days_per_year must be positive", tj.ID)
	}
	if tj.AdvanceNoticeDays != nil && *tj.AdvanceNoticeDays < 0 {
		return nil, fmt.Errorf("leave type %q: advance_notice_days must not be negative", tj.ID)
	}
	if tj.MaxConcurrentRequests != nil && *tj.MaxConcurrentRequests <= 0 {
		return nil, fmt.Errorf("leave type %q: max_concurrent_requests must be positive", tj.ID)
	}

	return &leave.LeaveType{
		ID:                    leave.LeaveTypeID(tj.ID),
		Name:                  tj.Name,
		Description:           tj.Description,
		IsPaid:                boolOrDefault(tj.IsPaid, true),
		MaxDaysPerYear:        tj.MaxDaysPerYear,
		AdvanceNoticeDays:     tj.AdvanceNoticeDays,
		MaxConcurrentRequests: tj.MaxConcurrentRequests,
		RequiresApproval:      boolOrDefault(tj.RequiresApproval, true),
		Color:                 tj.Color,
		IsActive:              boolOrDefault(tj.IsActive, true),
	}, nil
}

// ToJSON converts a LeaveType back to its JSON representation.
func (f *TypeFactory) ToJSON(lt *leave.LeaveType) LeaveTypeJSON {
	isPaid := lt.IsPaid
	requiresApproval := lt.RequiresApproval
	isActive := lt.IsActive
	return LeaveTypeJSON{
		ID:                    string(lt.ID),
		Name:                  lt.Name,
		Description:           lt.Description,
		IsPaid:                &isPaid,
		MaxDaysPerYear:        lt.MaxDaysPerYear,
		AdvanceNoticeDays:     lt.AdvanceNoticeDays,
		MaxConcurrentRequests: lt.MaxConcurrentRequests,
		RequiresApproval:      &requiresApproval,
		Color:                 lt.Color,
		IsActive:              &isActive,
	}
}

func boolOrDefault(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// =============================================================================
// STANDARD CATALOG
// =============================================================================

// StandardCatalog returns the default leave types most deployments start
// with. Callers persist these through the catalog store on first boot.
func (f *TypeFactory) StandardCatalog() []*leave.LeaveType {
	annual := 25
	sick := 10
	exceptional := 5
	notice := 14
	concurrent := 3

	return []*leave.LeaveType{
		{
			ID:                    "annual",
			Name:                  "Annual Leave",
			Description:           "Paid vacation days",
			IsPaid:                true,
			MaxDaysPerYear:        &annual,
			AdvanceNoticeDays:     &notice,
			MaxConcurrentRequests: &concurrent,
			RequiresApproval:      true,
			Color:                 "#4CAF50",
			IsActive:              true,
		},
		{
			ID:               "sick",
			Name:             "Sick Leave",
			Description:      "Paid sick days, no advance notice required",
			IsPaid:           true,
			MaxDaysPerYear:   &sick,
			RequiresApproval: true,
			Color:            "#F44336",
			IsActive:         true,
		},
		{
			ID:               "unpaid",
			Name:             "Unpaid Leave",
			Description:      "Leave without pay",
			IsPaid:           false,
			RequiresApproval: true,
			Color:            "#9E9E9E",
			IsActive:         true,
		},
		{
			ID:               "exceptional",
			Name:             "Exceptional Leave",
			Description:      "Family events, moving, bereavement",
			IsPaid:           true,
			MaxDaysPerYear:   &exceptional,
			RequiresApproval: true,
			Color:            "#2196F3",
			IsActive:         true,
		},
	}
}
