package enums

import "fmt"

// LeadEventType is the canonical event_type for lead analytics routing.
type LeadEventType string

const (
	LeadEventCreated     LeadEventType = "lead_created"
	LeadEventMatched     LeadEventType = "lead_matched"
	LeadEventNoMatch     LeadEventType = "lead_no_match"
	LeadEventMatchFailed LeadEventType = "lead_match_failed"
	LeadEventSold        LeadEventType = "lead_sold"
)

var validLeadEventTypes = []LeadEventType{
	LeadEventCreated,
	LeadEventMatched,
	LeadEventNoMatch,
	LeadEventMatchFailed,
	LeadEventSold,
}

// IsValid reports whether the value matches the canonical lead event_type enum.
func (l LeadEventType) IsValid() bool {
	for _, candidate := range validLeadEventTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadEventType converts the raw string to LeadEventType.
func ParseLeadEventType(value string) (LeadEventType, error) {
	for _, candidate := range validLeadEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead event type %q", value)
}
