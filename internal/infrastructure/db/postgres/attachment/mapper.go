package attachment

import (
	domain "attachment-manager-api/internal/domain/attachment"
)

func fromDBModel(model *Attachment) *domain.Attachment {
	var a = &domain.Attachment{
		ID:         model.ID,
		ExternalID: model.ExternalID,

		OwnerType: model.OwnerType,
		OwnerRef:  model.OwnerRef,

		Disk:       model.Disk,
		StorageKey: model.StorageKey,

		FileName:  model.FileName,
		MimeType:  model.MimeType,
		SizeBytes: model.SizeBytes,

		Title:       model.Title,
		Description: model.Description,
		Slot:        model.Slot,

		UploadToken: model.UploadToken,
		DownloadURL: model.DownloadURL,

		CreatedAt: model.CreatedAt,
		BoundAt:   model.BoundAt,
	}

	return a
}

func fromDBModels(models *Attachments) domain.Attachments {
	as := make(domain.Attachments, len(*models))
	for idx, a := range *models {
		as[idx] = fromDBModel(a)
	}

	return as
}
