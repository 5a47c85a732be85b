package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"attachment-manager-api/config"
	"attachment-manager-api/internal/application/ports"
	domain "attachment-manager-api/internal/domain/attachment"
	"attachment-manager-api/internal/infrastructure/gate"
	"attachment-manager-api/internal/infrastructure/mq"
)

const maxBaseNameLen = 100

// OutputRouteFormat renders the gated streaming path stored in download
// URLs. The rest layer derives its output route from the same format so
// the two cannot drift apart.
const OutputRouteFormat = "/api/v1/attachments/%s/%s"

var (
	windowsReserved = map[string]struct{}{
		"con": {}, "prn": {}, "aux": {}, "nul": {},
		"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
		"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
	}
	fileSafeRe    = regexp.MustCompile(`[^A-Za-z0-9\.\_\- ]+`)
	leadingDotsRe = regexp.MustCompile(`^\.+`)
)

type AttachmentService struct {
	disks       map[string]ports.Disk
	defaultDisk string
	repository  domain.Repository
	identifier  ports.Identifier
	gate        *gate.Gate
	mq          ports.RabbitMQ
	mCounter    *prometheus.CounterVec
	cfg         config.Attachments
}

func NewAttachmentService(
	disks map[string]ports.Disk,
	defaultDisk string,
	repository domain.Repository,
	identifier ports.Identifier,
	g *gate.Gate,
	rabbit ports.RabbitMQ,
	mCounter *prometheus.CounterVec,
	cfg config.Attachments,
) ports.AttachmentService {
	return &AttachmentService{
		disks:       disks,
		defaultDisk: defaultDisk,
		repository:  repository,
		identifier:  identifier,
		gate:        g,
		mq:          rabbit,
		mCounter:    mCounter,
		cfg:         cfg,
	}
}

func (as *AttachmentService) UploadAttachment(
	ctx context.Context,
	in *multipart.FileHeader,
	opts ports.UploadOptions,
	gctx gate.Context,
) (*domain.Attachment, error) {
	if !as.gate.AllowUpload(gctx) {
		return nil, domain.ErrForbidden
	}
	// ownerType is set iff ownerRef is set, from creation onwards
	if (opts.OwnerType == nil) != (opts.OwnerRef == nil) {
		return nil, fmt.Errorf("%w: owner_type and owner_ref must be supplied together", domain.ErrInvalidArgument)
	}

	diskName := opts.Disk
	if diskName == "" {
		diskName = as.defaultDisk
	}
	disk, ok := as.disks[diskName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown storage disk %q", domain.ErrInvalidArgument, diskName)
	}

	att := new(domain.Attachment)
	att.ExternalID = as.identifier.Generate()
	att.OwnerType = opts.OwnerType
	att.OwnerRef = opts.OwnerRef
	att.Disk = diskName
	att.FileName = filepath.Base(sanitizeFileName(in.Filename))
	att.MimeType = in.Header.Get("Content-Type")
	if att.MimeType == "" {
		att.MimeType = "application/octet-stream"
	}
	att.SizeBytes = uint64(in.Size)
	att.Title = opts.Title
	att.Description = opts.Description
	att.Slot = opts.Slot
	att.UploadToken = opts.Token

	f, err := in.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	key, err := disk.Put(ctx, f, in.Size, genSafeStorageKey(att.ExternalID, att.FileName, att.MimeType))
	if err != nil {
		return nil, err
	}
	att.StorageKey = key
	att.DownloadURL = downloadURL(disk, key, att.ExternalID, att.FileName)

	out, err := as.repository.CreateAttachment(ctx, att)
	if err != nil {
		// keep the backend clean when the record never existed
		_ = disk.Delete(ctx, key)
		return nil, err
	}

	as.mCounter.WithLabelValues("attachments_uploaded_total").Inc()
	as.emit(ctx, mq.ActionUploaded, out)

	return out, nil
}

func (as *AttachmentService) BindAttachment(ctx context.Context, externalID, ownerType, ownerRef string) (*domain.Attachment, error) {
	if externalID == "" || ownerType == "" || ownerRef == "" {
		return nil, fmt.Errorf("%w: external id, owner_type and owner_ref are required", domain.ErrInvalidArgument)
	}

	out, err := as.repository.BindAttachment(ctx, externalID, ownerType, ownerRef)
	if err != nil {
		return nil, err
	}

	as.mCounter.WithLabelValues("attachments_bound_total").Inc()
	as.emit(ctx, mq.ActionBound, out)

	return out, nil
}

func (as *AttachmentService) DeletePendingAttachment(ctx context.Context, externalID string, gctx gate.Context) error {
	att, err := as.repository.FetchByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	// the deferred-delete path never touches bound attachments
	if !att.Pending() {
		return domain.ErrForbidden
	}
	if !as.gate.AllowDelete(gctx, att) {
		return domain.ErrForbidden
	}
	if as.cfg.CSRFCheck && att.UploadToken != gctx.Token {
		return domain.ErrForbidden
	}

	if err = as.repository.DeleteAttachment(ctx, externalID, true, as.purge(ctx)); err != nil {
		// a bind that won the race turns this into a bound record
		if errors.Is(err, domain.ErrAlreadyBound) {
			return domain.ErrForbidden
		}
		return err
	}

	as.mCounter.WithLabelValues("attachments_deleted_total").Inc()
	as.emit(ctx, mq.ActionDeleted, att)

	return nil
}

// DeleteAttachment removes a record regardless of bind state. Cascade
// behavior matches the deferred path.
func (as *AttachmentService) DeleteAttachment(ctx context.Context, externalID string) error {
	att, err := as.repository.FetchByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	if err = as.repository.DeleteAttachment(ctx, externalID, false, as.purge(ctx)); err != nil {
		return err
	}

	as.mCounter.WithLabelValues("attachments_deleted_total").Inc()
	as.emit(ctx, mq.ActionDeleted, att)

	return nil
}

func (as *AttachmentService) OpenAttachment(ctx context.Context, externalID string, gctx gate.Context) (*domain.Attachment, io.ReadCloser, error) {
	att, err := as.repository.FetchByExternalID(ctx, externalID)
	if err != nil {
		return nil, nil, err
	}
	if !as.gate.AllowOutput(gctx, att) {
		return nil, nil, domain.ErrForbidden
	}

	disk, ok := as.disks[att.Disk]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown storage disk %q", domain.ErrStorageFailure, att.Disk)
	}
	rc, err := disk.Get(ctx, att.StorageKey)
	if err != nil {
		return nil, nil, err
	}

	return att, rc, nil
}

func (as *AttachmentService) FindByOwner(ctx context.Context, ownerType, ownerRef string) (domain.Attachments, error) {
	if ownerType == "" || ownerRef == "" {
		return nil, fmt.Errorf("%w: owner_type and owner_ref are required", domain.ErrInvalidArgument)
	}
	return as.repository.FetchByOwner(ctx, ownerType, ownerRef)
}

func (as *AttachmentService) FindByOwnerAndSlot(ctx context.Context, ownerType, ownerRef, slot string) (*domain.Attachment, error) {
	if ownerType == "" || ownerRef == "" || slot == "" {
		return nil, fmt.Errorf("%w: owner_type, owner_ref and slot are required", domain.ErrInvalidArgument)
	}
	return as.repository.FetchByOwnerAndSlot(ctx, ownerType, ownerRef, slot)
}

// SweepPendingAttachments deletes pending records older than the cutoff
// through the standard delete path. Records bound or deleted between the
// scan and the per-record delete are skipped, not failed.
func (as *AttachmentService) SweepPendingAttachments(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	ids, err := as.repository.FetchStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		switch err = as.repository.DeleteAttachment(ctx, id, true, as.purge(ctx)); {
		case err == nil:
			count++
			as.mCounter.WithLabelValues("attachments_swept_total").Inc()
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyBound):
			// lost the race to a concurrent delete or bind
		default:
			return count, err
		}
	}

	return count, nil
}

// purge returns the storage-object removal hook run inside the registry's
// delete transaction, honoring the cascade switch.
func (as *AttachmentService) purge(ctx context.Context) func(*domain.Attachment) error {
	return func(a *domain.Attachment) error {
		if !as.cfg.CascadeDelete {
			return nil
		}
		disk, ok := as.disks[a.Disk]
		if !ok {
			return fmt.Errorf("%w: unknown storage disk %q", domain.ErrStorageFailure, a.Disk)
		}
		return disk.Delete(ctx, a.StorageKey)
	}
}

func (as *AttachmentService) emit(_ context.Context, action string, a *domain.Attachment) {
	if as.mq == nil {
		return
	}

	e := mq.Event{
		Id:     uuid.New(),
		TS:     time.Now().UTC(),
		Action: action,
		Payload: mq.Payload{
			ExternalID: a.ExternalID,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			OwnerType:  a.OwnerType,
			OwnerRef:   a.OwnerRef,
		},
	}

	select {
	case as.mq.GetInputChan() <- e:
	default:
		as.mCounter.WithLabelValues("mq_events_dropped_total").Inc()
	}
}

func downloadURL(disk ports.Disk, key, externalID, fileName string) string {
	if pub := disk.PublicURL(key); pub != "" {
		return pub
	}
	return fmt.Sprintf(OutputRouteFormat, externalID, url.PathEscape(fileName))
}

// genSafeStorageKey: "attachments/<externalid>/<filename>.ext"
func genSafeStorageKey(externalID, fileName, mimeType string) string {
	clean := strings.TrimSpace(fileName)
	clean = strings.Map(func(r rune) rune {
		if r == '\x00' || r < 0x20 {
			return -1
		}
		return r
	}, clean)
	clean = leadingDotsRe.ReplaceAllString(clean, "")

	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	ext = strings.ToLower(ext)

	if ext == "" {
		if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	base = fileSafeRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "- .")

	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}

	if base == "" {
		base = "file"
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == "" {
		ext = ".bin"
	}

	return fmt.Sprintf("attachments/%s/%s", externalID, base+ext)
}

// sanitizeFileName make file name ASCII standard
func sanitizeFileName(original string) string {
	if original == "" {
		return "file"
	}

	s := strings.TrimSpace(original)
	s = strings.ReplaceAll(s, "\\", "/")
	s = path.Base(s)

	if s == "." || s == ".." || s == "" {
		return "file"
	}

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	s, _, _ = transform.String(t, s)

	ext := path.Ext(s)
	base := strings.TrimSuffix(s, ext)
	ext = strings.ToLower(ext)

	//  [a-z0-9], '-' и '_', dot/space → '-'
	var b strings.Builder
	b.Grow(len(base))
	prevDash := false
	for _, r := range base {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevDash = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			prevDash = false
		case r == '-' || r == '_':
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		case r == '.' || unicode.IsSpace(r):
			if !prevDash {
				b.WriteRune('-')
				prevDash = true
			}
		default:
		}
	}
	base = strings.Trim(b.String(), "-")

	if base == "" {
		base = "file"
	}
	if _, bad := windowsReserved[base]; bad {
		base = "_" + base
	}

	for utf8.RuneCountInString(base)+len(ext) > maxBaseNameLen {
		_, size := utf8.DecodeLastRuneInString(base)
		if size <= 0 || size > len(base) {
			break
		}
		base = base[:len(base)-size]
	}

	return base + ext
}

func isMn(r rune) bool { return unicode.Is(unicode.Mn, r) }
