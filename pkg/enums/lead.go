package enums

import "fmt"

// LeadStatus represents the canonical lead_status enum in Postgres.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusMatching     LeadStatus = "matching"
	LeadStatusMatched      LeadStatus = "matched"
	LeadStatusNoMatchFound LeadStatus = "no_match_found"
	LeadStatusSold         LeadStatus = "sold"
	LeadStatusFailed       LeadStatus = "failed"
	LeadStatusCompleted    LeadStatus = "completed"
	LeadStatusCancelled    LeadStatus = "cancelled"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusMatching,
	LeadStatusMatched,
	LeadStatusNoMatchFound,
	LeadStatusSold,
	LeadStatusFailed,
	LeadStatusCompleted,
	LeadStatusCancelled,
}

// String implements fmt.Stringer.
func (s LeadStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LeadStatus.
func (s LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}

// Urgency represents how soon a homeowner needs the work done.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var validUrgencies = []Urgency{
	UrgencyLow,
	UrgencyMedium,
	UrgencyHigh,
}

// String implements fmt.Stringer.
func (u Urgency) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Urgency.
func (u Urgency) IsValid() bool {
	for _, candidate := range validUrgencies {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUrgency converts raw input into an Urgency.
func ParseUrgency(value string) (Urgency, error) {
	for _, candidate := range validUrgencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid urgency %q", value)
}
