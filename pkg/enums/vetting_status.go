package enums

import "fmt"

// VettingStatus captures the contractor verification workflow.
type VettingStatus string

const (
	VettingStatusPending        VettingStatus = "pending"
	VettingStatusPendingStripe  VettingStatus = "pending_stripe"
	VettingStatusApproved       VettingStatus = "approved"
	VettingStatusActionRequired VettingStatus = "action_required"
	VettingStatusRejected       VettingStatus = "rejected"
)

var validVettingStatuses = []VettingStatus{
	VettingStatusPending,
	VettingStatusPendingStripe,
	VettingStatusApproved,
	VettingStatusActionRequired,
	VettingStatusRejected,
}

// String implements fmt.Stringer.
func (s VettingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the GORM enum.
func (s VettingStatus) IsValid() bool {
	for _, candidate := range validVettingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVettingStatus converts raw input into a VettingStatus.
func ParseVettingStatus(value string) (VettingStatus, error) {
	for _, candidate := range validVettingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vetting status %q", value)
}
