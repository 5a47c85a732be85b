package attachment

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "attachment-manager-api/internal/domain/attachment"
)

var attachmentColumns = []string{
	"id", "external_id", "owner_type", "owner_ref", "disk", "storage_key",
	"file_name", "mime_type", "size_bytes", "title", "description", "slot",
	"upload_token", "download_url", "created_at", "bound_at",
}

func pendingRow(id uint64, externalID string, createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(attachmentColumns).AddRow(
		id, externalID, (*string)(nil), (*string)(nil), "local", "attachments/"+externalID+"/readme.md",
		"readme.md", "text/markdown", uint64(2906), "", "", "",
		"tok-1", "/api/v1/attachments/"+externalID+"/readme.md", createdAt, (*time.Time)(nil),
	)
}

func boundRow(id uint64, externalID, ownerType, ownerRef string, createdAt, boundAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(attachmentColumns).AddRow(
		id, externalID, &ownerType, &ownerRef, "local", "attachments/"+externalID+"/readme.md",
		"readme.md", "text/markdown", uint64(2906), "", "", "",
		"tok-1", "/api/v1/attachments/"+externalID+"/readme.md", createdAt, &boundAt,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, domain.Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, NewRepository(mock)
}

func TestRepository_CreateAttachment_Pending(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(InsertAttachment)).
		WithArgs("ext1", (*string)(nil), (*string)(nil), "local", "attachments/ext1/readme.md",
			"readme.md", "text/markdown", uint64(2906), "", "", "",
			"tok-1", "/api/v1/attachments/ext1/readme.md").
		WillReturnRows(pendingRow(7, "ext1", now))

	got, err := repo.CreateAttachment(context.Background(), &domain.Attachment{
		ExternalID:  "ext1",
		Disk:        "local",
		StorageKey:  "attachments/ext1/readme.md",
		FileName:    "readme.md",
		MimeType:    "text/markdown",
		SizeBytes:   2906,
		UploadToken: "tok-1",
		DownloadURL: "/api/v1/attachments/ext1/readme.md",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.True(t, got.Pending())
	assert.Nil(t, got.BoundAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_BindAttachment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(BindAttachmentByExternalID)).
			WithArgs("ext1", "post", "42").
			WillReturnRows(boundRow(7, "ext1", "post", "42", now, now))

		got, err := repo.BindAttachment(context.Background(), "ext1", "post", "42")
		require.NoError(t, err)
		require.NotNil(t, got.OwnerType)
		require.NotNil(t, got.OwnerRef)
		assert.Equal(t, "post", *got.OwnerType)
		assert.Equal(t, "42", *got.OwnerRef)
		assert.NotNil(t, got.BoundAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already bound", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(BindAttachmentByExternalID)).
			WithArgs("ext1", "post", "42").
			WillReturnRows(pgxmock.NewRows(attachmentColumns))
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentExists)).
			WithArgs("ext1").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

		_, err := repo.BindAttachment(context.Background(), "ext1", "post", "42")
		assert.ErrorIs(t, err, domain.ErrAlreadyBound)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(BindAttachmentByExternalID)).
			WithArgs("gone", "post", "42").
			WillReturnRows(pgxmock.NewRows(attachmentColumns))
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentExists)).
			WithArgs("gone").
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

		_, err := repo.BindAttachment(context.Background(), "gone", "post", "42")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_DeleteAttachment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("purges object then removes row", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentForDelete)).
			WithArgs("ext1").
			WillReturnRows(pendingRow(7, "ext1", now))
		mock.ExpectExec(regexp.QuoteMeta(DeleteAttachmentByID)).
			WithArgs(uint64(7)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		var purged string
		err := repo.DeleteAttachment(context.Background(), "ext1", true, func(a *domain.Attachment) error {
			purged = a.StorageKey
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "attachments/ext1/readme.md", purged)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentForDelete)).
			WithArgs("gone").
			WillReturnRows(pgxmock.NewRows(attachmentColumns))
		mock.ExpectRollback()

		err := repo.DeleteAttachment(context.Background(), "gone", true, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending-only rejects bound record", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentForDelete)).
			WithArgs("ext1").
			WillReturnRows(boundRow(7, "ext1", "post", "42", now, now))
		mock.ExpectRollback()

		err := repo.DeleteAttachment(context.Background(), "ext1", true, func(*domain.Attachment) error {
			t.Fatal("purge must not run for a bound record on the pending-only path")
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyBound)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("purge failure retains the record", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentForDelete)).
			WithArgs("ext1").
			WillReturnRows(pendingRow(7, "ext1", now))
		mock.ExpectRollback()

		wantErr := errors.New("backend unavailable")
		err := repo.DeleteAttachment(context.Background(), "ext1", true, func(*domain.Attachment) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_FetchByExternalID_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(SelectAttachmentByExternalID)).
		WithArgs("gone").
		WillReturnRows(pgxmock.NewRows(attachmentColumns))

	_, err := repo.FetchByExternalID(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchStalePending(t *testing.T) {
	mock, repo := newMockRepo(t)
	cutoff := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(SelectStalePendingExternalIDs)).
		WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"external_id"}).AddRow("ext1").AddRow("ext2"))

	ids, err := repo.FetchStalePending(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"ext1", "ext2"}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}
