package dto

import (
	"time"

	filesDomain "github.com/allisson/filevault/internal/files/domain"
)

// FileResponse represents file metadata in API responses. The nonce and object
// key are never exposed.
type FileResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	SHA256      string     `json:"sha256"`
	TeamID      *string    `json:"team_id,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MapFileToResponse converts a domain file to an API response.
func MapFileToResponse(file *filesDomain.StoredFile) FileResponse {
	response := FileResponse{
		ID:          file.ID.String(),
		Name:        file.OriginalName,
		Size:        file.Size,
		ContentType: file.ContentType,
		SHA256:      file.DigestHex,
		UploadedAt:  file.UploadedAt,
		ExpiresAt:   file.ExpiresAt,
	}
	if file.TeamID != nil {
		teamID := file.TeamID.String()
		response.TeamID = &teamID
	}
	return response
}

// ListFilesResponse represents a page of files.
type ListFilesResponse struct {
	Data []FileResponse `json:"data"`
}

// MapFilesToListResponse converts domain files to a list response.
func MapFilesToListResponse(files []*filesDomain.StoredFile) ListFilesResponse {
	data := make([]FileResponse, 0, len(files))
	for _, file := range files {
		data = append(data, MapFileToResponse(file))
	}
	return ListFilesResponse{Data: data}
}

// VerifyFileResponse reports the outcome of an integrity check.
type VerifyFileResponse struct {
	FileID string `json:"file_id"`
	Valid  bool   `json:"valid"`
}
