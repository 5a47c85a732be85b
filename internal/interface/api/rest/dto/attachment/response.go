package attachment

import (
	"time"
)

type (
	// UploadResponse is the wire contract of the deferred-upload widget:
	// Key echoes the anti-tamper token captured at upload time.
	UploadResponse struct {
		Title      string `json:"title"`
		FileName   string `json:"filename"`
		FileSize   uint64 `json:"filesize"`
		FileType   string `json:"filetype"`
		ExternalID string `json:"external_id"`
		Key        string `json:"key"`
		URL        string `json:"url"`
	}

	Attachment struct {
		ExternalID  string     `json:"external_id"`
		OwnerType   *string    `json:"owner_type,omitempty"`
		OwnerRef    *string    `json:"owner_ref,omitempty"`
		FileName    string     `json:"file_name"`
		MimeType    string     `json:"mime_type"`
		SizeBytes   uint64     `json:"size_bytes"`
		Title       string     `json:"title,omitempty"`
		Description string     `json:"description,omitempty"`
		Slot        string     `json:"slot,omitempty"`
		DownloadURL string     `json:"download_url"`
		CreatedAt   time.Time  `json:"created_at"`
		BoundAt     *time.Time `json:"bound_at,omitempty"`
	}
	Attachments  []Attachment
	ResponseData struct {
		Data Attachments `json:"data"`
	}

	BindRequest struct {
		OwnerType string `json:"owner_type"`
		OwnerRef  string `json:"owner_ref"`
	}
)
