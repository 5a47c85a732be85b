package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attachment-manager-api/internal/application/ports"
	domain "attachment-manager-api/internal/domain/attachment"
	"attachment-manager-api/internal/infrastructure/gate"
	"attachment-manager-api/internal/infrastructure/jwt"
	attachmentDTO "attachment-manager-api/internal/interface/api/rest/dto/attachment"
	"attachment-manager-api/internal/interface/api/rest/middleware"
	"attachment-manager-api/internal/interface/api/rest/validator"
)

// 10MB
const defaultMaxSize = int64(10 << 20)

type AttachmentController struct {
	attachmentService ports.AttachmentService
	logger            *zap.Logger
	maxSize           int64
}

func NewAttachmentController(
	r *gin.Engine,
	attachmentService ports.AttachmentService,
	logger *zap.Logger,
	jwtService *jwt.Service,
	maxUploadBytes int64,
) *AttachmentController {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxSize
	}
	ac := &AttachmentController{
		attachmentService: attachmentService,
		logger:            logger,
		maxSize:           maxUploadBytes,
	}

	r.POST(RouteAttachments, ac.UploadAttachmentHandler)
	r.GET(RouteAttachments, ac.GetAttachmentsByOwnerHandler)
	r.POST(RouteAttachmentBind, ac.BindAttachmentHandler)
	r.DELETE(RouteAttachment, ac.DeletePendingAttachmentHandler)
	r.GET(RouteAttachmentOutput, ac.OutputAttachmentHandler)
	r.POST(RouteAttachmentsCleanup, middleware.AuthMiddleware(jwtService), ac.CleanupAttachmentsHandler)

	return ac
}

// gateContext collects the request facts the access gate decides on.
// The anti-tamper token travels either in a header or as the "key"
// value the upload widget echoes back.
func gateContext(c *gin.Context) gate.Context {
	token := c.GetHeader("X-Upload-Token")
	if token == "" {
		token = c.Query("key")
	}
	if token == "" {
		token = c.PostForm("key")
	}

	return gate.Context{
		Token:     token,
		UserID:    c.GetString(middleware.CtxUserID),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (ac *AttachmentController) UploadAttachmentHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size <= 0 || fh.Size > ac.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large or empty"})
		return
	}

	ownerType, ownerRef, err := validator.ValidateOwnerPair(
		c.PostForm("owner_type"),
		c.PostForm("owner_ref"),
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// capture the token from the same sources the gate reads, so the
	// stored token always matches what delete-pending will compare against
	gctx := gateContext(c)
	opts := ports.UploadOptions{
		Disk:        c.PostForm("disk"),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Slot:        c.PostForm("slot"),
		OwnerType:   ownerType,
		OwnerRef:    ownerRef,
		Token:       gctx.Token,
	}

	a, err := ac.attachmentService.UploadAttachment(c.Request.Context(), fh, opts, gctx)
	if err != nil {
		ac.respondError(c, "UploadAttachment()", err)
		return
	}

	c.JSON(http.StatusCreated, attachmentDTO.ToUploadResponse(*a))
}

func (ac *AttachmentController) BindAttachmentHandler(c *gin.Context) {
	externalID := c.Param("external_id")
	if !validator.IsExternalID(externalID) {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "external_id must be a valid attachment identifier"},
		)
		return
	}

	var req attachmentDTO.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.OwnerType == "" || req.OwnerRef == "" {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "owner_type and owner_ref are required"},
		)
		return
	}

	a, err := ac.attachmentService.BindAttachment(c.Request.Context(), externalID, req.OwnerType, req.OwnerRef)
	if err != nil {
		ac.respondError(c, "BindAttachment()", err)
		return
	}

	c.JSON(http.StatusOK, attachmentDTO.ToResponseAttachment(*a))
}

func (ac *AttachmentController) DeletePendingAttachmentHandler(c *gin.Context) {
	externalID := c.Param("external_id")
	if !validator.IsExternalID(externalID) {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "external_id must be a valid attachment identifier"},
		)
		return
	}

	err := ac.attachmentService.DeletePendingAttachment(c.Request.Context(), externalID, gateContext(c))
	if err != nil {
		ac.respondError(c, "DeletePendingAttachment()", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// OutputAttachmentHandler streams the stored object. The trailing
// filename segment is cosmetic, lookup goes by external_id only.
func (ac *AttachmentController) OutputAttachmentHandler(c *gin.Context) {
	externalID := c.Param("external_id")
	if !validator.IsExternalID(externalID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	a, rc, err := ac.attachmentService.OpenAttachment(c.Request.Context(), externalID, gateContext(c))
	if err != nil {
		ac.respondError(c, "OpenAttachment()", err)
		return
	}
	defer func() { _ = rc.Close() }()

	c.DataFromReader(
		http.StatusOK,
		int64(a.SizeBytes),
		a.MimeType,
		rc,
		map[string]string{
			"Content-Disposition": fmt.Sprintf("inline; filename=%q", a.FileName),
		},
	)
}

func (ac *AttachmentController) GetAttachmentsByOwnerHandler(c *gin.Context) {
	ownerType := c.Query("owner_type")
	ownerRef := c.Query("owner_ref")
	if ownerType == "" || ownerRef == "" {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "owner_type and owner_ref are required"},
		)
		return
	}

	if slot := c.Query("slot"); slot != "" {
		a, err := ac.attachmentService.FindByOwnerAndSlot(c.Request.Context(), ownerType, ownerRef, slot)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.JSON(http.StatusOK, attachmentDTO.ResponseData{Data: attachmentDTO.Attachments{}})
				return
			}
			ac.respondError(c, "FindByOwnerAndSlot()", err)
			return
		}

		c.JSON(http.StatusOK, attachmentDTO.ResponseData{
			Data: attachmentDTO.Attachments{attachmentDTO.ToResponseAttachment(*a)},
		})
		return
	}

	as, err := ac.attachmentService.FindByOwner(c.Request.Context(), ownerType, ownerRef)
	if err != nil {
		ac.respondError(c, "FindByOwner()", err)
		return
	}

	c.JSON(http.StatusOK, attachmentDTO.ResponseData{
		Data: attachmentDTO.ToResponseAttachments(as),
	})
}

func (ac *AttachmentController) CleanupAttachmentsHandler(c *gin.Context) {
	maxAge, err := validator.ValidateMaxAge(c.Query("max_age_minutes"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := ac.attachmentService.SweepPendingAttachments(
		c.Request.Context(),
		time.Duration(maxAge)*time.Minute,
	)
	if err != nil {
		ac.respondError(c, "SweepPendingAttachments()", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// respondError maps domain sentinels to HTTP statuses without leaking
// internals. Unexpected errors are logged and answered with a 500.
func (ac *AttachmentController) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
	case errors.Is(err, domain.ErrAlreadyBound):
		c.JSON(http.StatusConflict, gin.H{"error": "attachment already bound"})
	case errors.Is(err, domain.ErrStorageFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
		ac.logger.Error(op+" storage error", zap.Error(err))
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		ac.logger.Error(op+" error", zap.Error(err))
	}
}
