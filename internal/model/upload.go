package model

// Upload statuses reported per file in a batch.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Upload warnings. A file can carry several; none of them fail the batch.
const (
	WarningInvalidFilename  = "invalid_filename"
	WarningStoreFailed      = "store_failed"
	WarningExtractionFailed = "extraction_failed"
	WarningAlreadyIndexed   = "already_indexed"
	WarningIndexUnavailable = "index_unavailable"
)

// UploadResult reports what happened to one file of an upload batch.
type UploadResult struct {
	Filename string   `json:"filename"`
	Status   string   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
}

// Indexed reports whether the upload ended with a record in the index,
// either freshly written or already present.
func (r UploadResult) Indexed() bool {
	if r.Status != StatusSuccess {
		return false
	}
	for _, w := range r.Warnings {
		if w == WarningIndexUnavailable {
			return false
		}
	}
	return true
}

// ConsistencyReport describes how the file store and the index diverge.
type ConsistencyReport struct {
	StoredOnly  []string `json:"stored_only"`
	IndexedOnly []string `json:"indexed_only"`
	Consistent  int      `json:"consistent"`
	DurationMS  int64    `json:"duration_ms"`
}
