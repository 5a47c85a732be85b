package attachment

import (
	"time"
)

type (
	Attachment struct {
		ID         uint64
		ExternalID string

		OwnerType *string
		OwnerRef  *string

		Disk       string
		StorageKey string

		FileName  string
		MimeType  string
		SizeBytes uint64

		Title       string
		Description string
		Slot        string

		UploadToken string
		DownloadURL string

		CreatedAt time.Time
		BoundAt   *time.Time
	}
	Attachments []*Attachment
)
