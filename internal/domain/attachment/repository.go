package attachment

import (
	"context"
	"time"
)

type Repository interface {
	CreateAttachment(ctx context.Context, req *Attachment) (*Attachment, error)
	FetchByExternalID(ctx context.Context, externalID string) (*Attachment, error)

	// BindAttachment sets the owner pair and bound_at in a single guarded
	// update. Returns ErrNotFound when no record matches externalID and
	// ErrAlreadyBound when the owner pair is already set.
	BindAttachment(ctx context.Context, externalID, ownerType, ownerRef string) (*Attachment, error)

	// DeleteAttachment locks the record, re-checks its state, runs purge
	// (storage-object removal) and removes the row, all in one transaction.
	// The row delete is the durable commit point: a purge error aborts the
	// whole call and retains the record. With pendingOnly set, a bound
	// record yields ErrAlreadyBound.
	DeleteAttachment(ctx context.Context, externalID string, pendingOnly bool, purge func(*Attachment) error) error

	FetchByOwner(ctx context.Context, ownerType, ownerRef string) (Attachments, error)
	FetchByOwnerAndSlot(ctx context.Context, ownerType, ownerRef, slot string) (*Attachment, error)

	// FetchStalePending returns external ids of pending records created
	// before the cutoff. Callers must not trust the snapshot: the delete
	// path re-checks pending status per record.
	FetchStalePending(ctx context.Context, cutoff time.Time) ([]string, error)
}
