package ports

import (
	"context"
	"io"
	"mime/multipart"
	"time"

	"attachment-manager-api/internal/domain/attachment"
	"attachment-manager-api/internal/infrastructure/gate"
)

type UploadOptions struct {
	Disk        string
	Title       string
	Description string
	Slot        string
	OwnerType   *string
	OwnerRef    *string
	Token       string
}

type AttachmentService interface {
	UploadAttachment(ctx context.Context, in *multipart.FileHeader, opts UploadOptions, gctx gate.Context) (*attachment.Attachment, error)
	BindAttachment(ctx context.Context, externalID, ownerType, ownerRef string) (*attachment.Attachment, error)
	DeletePendingAttachment(ctx context.Context, externalID string, gctx gate.Context) error
	DeleteAttachment(ctx context.Context, externalID string) error
	OpenAttachment(ctx context.Context, externalID string, gctx gate.Context) (*attachment.Attachment, io.ReadCloser, error)
	FindByOwner(ctx context.Context, ownerType, ownerRef string) (attachment.Attachments, error)
	FindByOwnerAndSlot(ctx context.Context, ownerType, ownerRef, slot string) (*attachment.Attachment, error)
	SweepPendingAttachments(ctx context.Context, olderThan time.Duration) (int, error)
}
