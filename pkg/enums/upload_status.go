package enums

import "fmt"

// UploadStatus describes the allowed values for the `status` column in uploads.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "PENDING"
	UploadStatusProcessing UploadStatus = "PROCESSING"
	UploadStatusDone       UploadStatus = "DONE"
	UploadStatusFailed     UploadStatus = "FAILED"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusPending,
	UploadStatusProcessing,
	UploadStatusDone,
	UploadStatusFailed,
}

// IsValid reports whether the value matches the canonical upload status enum.
func (u UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions may leave this status.
func (u UploadStatus) IsTerminal() bool {
	return u == UploadStatusDone || u == UploadStatusFailed
}

// ParseUploadStatus converts the raw string to UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
