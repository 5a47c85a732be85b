package ports

// Identifier generates collision-resistant external identifiers for
// attachments. Pluggable; uniqueness must be preserved by any substitute.
type Identifier interface {
	Generate() string
}
