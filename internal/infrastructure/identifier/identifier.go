// Package identifier provides the default external-identifier strategy:
// a random UUID-v4 rendered as lowercase unpadded base32, 26 characters.
package identifier

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.HexEncoding.WithPadding(base32.NoPadding)

type Generator struct{}

func New() *Generator { return &Generator{} }

func (g *Generator) Generate() string {
	u := uuid.New()
	return strings.ToLower(encoding.EncodeToString(u[:]))
}
