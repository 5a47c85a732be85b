package attachment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "attachment-manager-api/internal/domain/attachment"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) domain.Repository {
	return &Repository{db: db}
}

func scanAttachment(row pgx.Row) (*Attachment, error) {
	a := new(Attachment)

	err := row.Scan(
		&a.ID,
		&a.ExternalID,

		&a.OwnerType,
		&a.OwnerRef,

		&a.Disk,
		&a.StorageKey,

		&a.FileName,
		&a.MimeType,
		&a.SizeBytes,

		&a.Title,
		&a.Description,
		&a.Slot,

		&a.UploadToken,
		&a.DownloadURL,

		&a.CreatedAt,
		&a.BoundAt,
	)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (r *Repository) CreateAttachment(ctx context.Context, req *domain.Attachment) (*domain.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(
		ctx,
		InsertAttachment,
		req.ExternalID, req.OwnerType, req.OwnerRef, req.Disk, req.StorageKey,
		req.FileName, req.MimeType, req.SizeBytes,
		req.Title, req.Description, req.Slot,
		req.UploadToken, req.DownloadURL,
	))
	if err != nil {
		return nil, err
	}

	return fromDBModel(a), nil
}

func (r *Repository) FetchByExternalID(ctx context.Context, externalID string) (*domain.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(ctx, SelectAttachmentByExternalID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return fromDBModel(a), nil
}

func (r *Repository) BindAttachment(ctx context.Context, externalID, ownerType, ownerRef string) (*domain.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(ctx, BindAttachmentByExternalID, externalID, ownerType, ownerRef))
	if err == nil {
		return fromDBModel(a), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// zero rows: either no such record or the guard rejected a re-bind
	var one int
	switch err = r.db.QueryRow(ctx, SelectAttachmentExists, externalID).Scan(&one); {
	case err == nil:
		return nil, domain.ErrAlreadyBound
	case errors.Is(err, pgx.ErrNoRows):
		return nil, domain.ErrNotFound
	default:
		return nil, err
	}
}

func (r *Repository) DeleteAttachment(ctx context.Context, externalID string, pendingOnly bool, purge func(*domain.Attachment) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The row lock serializes this delete against concurrent binds and
	// deletes on the same record; state is re-checked under the lock.
	a, err := scanAttachment(tx.QueryRow(ctx, SelectAttachmentForDelete, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if pendingOnly && (a.OwnerType != nil || a.OwnerRef != nil) {
		return domain.ErrAlreadyBound
	}

	// storage object goes first; a purge failure retains the record
	if purge != nil {
		if err = purge(fromDBModel(a)); err != nil {
			return err
		}
	}

	if _, err = tx.Exec(ctx, DeleteAttachmentByID, a.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) FetchByOwner(ctx context.Context, ownerType, ownerRef string) (domain.Attachments, error) {
	rows, err := r.db.Query(ctx, SelectAttachmentsByOwner, ownerType, ownerRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var as Attachments
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		as = append(as, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fromDBModels(&as), nil
}

func (r *Repository) FetchByOwnerAndSlot(ctx context.Context, ownerType, ownerRef, slot string) (*domain.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRow(ctx, SelectAttachmentByOwnerAndSlot, ownerType, ownerRef, slot))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return fromDBModel(a), nil
}

func (r *Repository) FetchStalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, SelectStalePendingExternalIDs, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
