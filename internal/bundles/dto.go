package bundles

import "time"

// BundleResponse is the API view of a bundle.
type BundleResponse struct {
	BundleID    string       `json:"bundleId"`
	Status      Status       `json:"status"`
	FileName    string       `json:"fileName"`
	SizeBytes   int64        `json:"sizeBytes"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	DownloadURL string       `json:"downloadUrl"`
	Jobs        []JobSummary `json:"jobs"`
}

// DownloadPath is the relative URL that streams a bundle.
func DownloadPath(id string) string {
	return "/api/v1/bundles/" + id + "/download"
}

// ToResponse maps a bundle to its API view.
func ToResponse(b ArtifactBundle) BundleResponse {
	jobs := b.Jobs
	if jobs == nil {
		jobs = []JobSummary{}
	}
	return BundleResponse{
		BundleID:    b.ID,
		Status:      b.Status,
		FileName:    b.FileName,
		SizeBytes:   b.SizeBytes,
		CreatedAt:   b.CreatedAt,
		ExpiresAt:   b.ExpiresAt,
		DownloadURL: DownloadPath(b.ID),
		Jobs:        jobs,
	}
}
