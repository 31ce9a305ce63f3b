package model

import "time"

// UnknownValue is recorded when a metadata field cannot be determined.
const UnknownValue = "Unknown"

// Document is the indexed, searchable representation of an uploaded file.
// Filename is the logical key used for duplicate detection; ID is derived from it.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	UploadDate   time.Time `json:"upload_date"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	CreationDate string    `json:"creation_date"`
	Checksum     string    `json:"checksum"`
}

// SearchResult is a single hit returned to search clients.
type SearchResult struct {
	Filename     string `json:"filename"`
	Snippet      string `json:"snippet"`
	Author       string `json:"author"`
	CreationDate string `json:"creation_date"`
}
