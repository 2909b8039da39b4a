package enums

import "fmt"

// AssessmentStatus tracks an AR assessment through the analysis pipeline.
type AssessmentStatus string

const (
	AssessmentStatusUploading  AssessmentStatus = "uploading"
	AssessmentStatusProcessing AssessmentStatus = "processing"
	AssessmentStatusComplete   AssessmentStatus = "complete"
	AssessmentStatusFailed     AssessmentStatus = "failed"
)

var validAssessmentStatuses = []AssessmentStatus{
	AssessmentStatusUploading,
	AssessmentStatusProcessing,
	AssessmentStatusComplete,
	AssessmentStatusFailed,
}

// String implements fmt.Stringer.
func (s AssessmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssessmentStatus.
func (s AssessmentStatus) IsValid() bool {
	for _, candidate := range validAssessmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssessmentStatus converts raw input into an AssessmentStatus.
func ParseAssessmentStatus(value string) (AssessmentStatus, error) {
	for _, candidate := range validAssessmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assessment status %q", value)
}
