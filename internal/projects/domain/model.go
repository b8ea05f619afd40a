package domain

import "time"

// Project represents a single generative-art project owned by a user.
// It is intentionally storage-agnostic and used across repository, service
// and HTTP layers. The executable and thumbnail artifacts are not part of
// the record; they are addressed on disk by the project's UUID.
type Project struct {
	UUID        string `json:"uuid"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     int    `json:"version"`
	LastUpdated int64  `json:"lastUpdated"` // epoch milliseconds
}

// ProjectData carries the caller-editable metadata fields of a project.
type ProjectData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	// MaxNameLength bounds the project name; names must be strictly shorter.
	MaxNameLength = 60
	// MaxDescriptionLength bounds the project description.
	MaxDescriptionLength = 500
)

// ValidateProjectData checks the metadata fields of a new or updated project.
func ValidateProjectData(data ProjectData) error {
	if data.Name == "" {
		return &ValidationError{Reason: "name must not be empty"}
	}
	if len(data.Name) >= MaxNameLength {
		return &ValidationError{Reason: "name must be less than 60 characters long"}
	}
	if len(data.Description) > MaxDescriptionLength {
		return &ValidationError{Reason: "description must be at most 500 characters long"}
	}
	return nil
}

// NowMillis returns the current time as epoch milliseconds, the unit used
// for Project.LastUpdated.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
