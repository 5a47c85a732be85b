package rest

import (
	"fmt"

	"attachment-manager-api/internal/application/services"
)

const (
	// api
	RouteApiV1 = "/api/v1"

	RouteAttachments        = RouteApiV1 + "/attachments"
	RouteAttachmentsCleanup = RouteAttachments + "/cleanup"
	RouteAttachment         = RouteAttachments + "/:external_id"
	RouteAttachmentBind     = RouteAttachment + "/bind"

	// ops
	RouteHealth  = RouteApiV1 + "/healthz"
	RouteMetrics = RouteApiV1 + "/metrics"
)

// RouteAttachmentOutput is derived from the format the service renders
// download URLs with, so a route change cannot break stored URLs.
var RouteAttachmentOutput = fmt.Sprintf(services.OutputRouteFormat, ":external_id", ":filename")
