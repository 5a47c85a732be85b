package attachment

const (
	InsertAttachment = `
		INSERT INTO attachments (external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, bound_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CASE WHEN $2::text IS NULL THEN NULL ELSE now() END)
		RETURNING
		  id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
	`
	SelectAttachmentByExternalID = `
		SELECT id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
		FROM attachments
		WHERE external_id = $1
	`
	// The owner-pair guard makes the bind transition a single atomic
	// conditional update: a concurrent second bind matches zero rows.
	BindAttachmentByExternalID = `
		UPDATE attachments
		SET owner_type = $2,
		    owner_ref = $3,
		    bound_at = now()
		WHERE external_id = $1 AND owner_type IS NULL AND owner_ref IS NULL
		RETURNING
		  id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
	`
	SelectAttachmentExists = `SELECT 1 FROM attachments WHERE external_id = $1`
	SelectAttachmentForDelete = `
		SELECT id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
		FROM attachments
		WHERE external_id = $1
		FOR UPDATE
	`
	DeleteAttachmentByID = `DELETE FROM attachments WHERE id = $1`
	SelectAttachmentsByOwner = `
		SELECT id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
		FROM attachments
		WHERE owner_type = $1 AND owner_ref = $2
		ORDER BY created_at
	`
	SelectAttachmentByOwnerAndSlot = `
		SELECT id, external_id, owner_type, owner_ref, disk, storage_key, file_name, mime_type, size_bytes, title, description, slot, upload_token, download_url, created_at, bound_at
		FROM attachments
		WHERE owner_type = $1 AND owner_ref = $2 AND slot = $3
		ORDER BY created_at
		LIMIT 1
	`
	SelectStalePendingExternalIDs = `
		SELECT external_id
		FROM attachments
		WHERE owner_type IS NULL AND owner_ref IS NULL AND created_at < $1
		ORDER BY created_at
	`
)
