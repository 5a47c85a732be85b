package attachment

import (
	"attachment-manager-api/internal/domain/attachment"
)

func ToUploadResponse(aDomain attachment.Attachment) UploadResponse {
	title := aDomain.Title
	if title == "" {
		title = aDomain.FileName
	}

	return UploadResponse{
		Title:      title,
		FileName:   aDomain.FileName,
		FileSize:   aDomain.SizeBytes,
		FileType:   aDomain.MimeType,
		ExternalID: aDomain.ExternalID,
		Key:        aDomain.UploadToken,
		URL:        aDomain.DownloadURL,
	}
}

func ToResponseAttachment(aDomain attachment.Attachment) Attachment {
	var a = Attachment{
		ExternalID:  aDomain.ExternalID,
		OwnerType:   aDomain.OwnerType,
		OwnerRef:    aDomain.OwnerRef,
		FileName:    aDomain.FileName,
		MimeType:    aDomain.MimeType,
		SizeBytes:   aDomain.SizeBytes,
		Title:       aDomain.Title,
		Description: aDomain.Description,
		Slot:        aDomain.Slot,
		DownloadURL: aDomain.DownloadURL,
		CreatedAt:   aDomain.CreatedAt,
		BoundAt:     aDomain.BoundAt,
	}

	return a
}

func ToResponseAttachments(aDomain attachment.Attachments) Attachments {
	as := make(Attachments, len(aDomain))
	for idx, a := range aDomain {
		as[idx] = ToResponseAttachment(*a)
	}

	return as
}
