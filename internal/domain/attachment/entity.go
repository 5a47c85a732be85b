package attachment

import (
	"time"
)

type (
	Attachment struct {
		ID         uint64
		ExternalID string

		// OwnerType and OwnerRef are set together, exactly once, at bind
		// time. Both nil means the attachment is pending.
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

// Pending reports whether the attachment has not been bound to an owner yet.
func (a *Attachment) Pending() bool {
	return a.OwnerType == nil && a.OwnerRef == nil
}
