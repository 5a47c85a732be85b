// Package gate holds the pluggable authorization predicates guarding
// attachment output and deferred-flow actions. Predicates are registered
// once at process start and invoked synchronously; no read or delete path
// may bypass them.
package gate

import (
	"attachment-manager-api/internal/domain/attachment"
)

// Context is the request-scoped view handed to predicates.
type Context struct {
	// Token is the anti-tamper token presented by the caller.
	Token string
	// UserID carries the authenticated subject when the request passed the
	// auth middleware, empty otherwise.
	UserID    string
	ClientIP  string
	UserAgent string
}

type (
	OutputFunc func(gctx Context, att *attachment.Attachment) bool
	UploadFunc func(gctx Context) bool
	DeleteFunc func(gctx Context, att *attachment.Attachment) bool
)

type Gate struct {
	output OutputFunc
	upload UploadFunc
	delete DeleteFunc
}

type Option func(*Gate)

func WithOutput(fn OutputFunc) Option { return func(g *Gate) { g.output = fn } }
func WithUpload(fn UploadFunc) Option { return func(g *Gate) { g.upload = fn } }
func WithDelete(fn DeleteFunc) Option { return func(g *Gate) { g.delete = fn } }

// New builds a gate; every predicate defaults to allow.
func New(opts ...Option) *Gate {
	g := &Gate{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) AllowOutput(gctx Context, att *attachment.Attachment) bool {
	if g == nil || g.output == nil {
		return true
	}
	return g.output(gctx, att)
}

func (g *Gate) AllowUpload(gctx Context) bool {
	if g == nil || g.upload == nil {
		return true
	}
	return g.upload(gctx)
}

func (g *Gate) AllowDelete(gctx Context, att *attachment.Attachment) bool {
	if g == nil || g.delete == nil {
		return true
	}
	return g.delete(gctx, att)
}
