package models

// Loyalty tier rules: one badge per BadgeThreshold accepted reviews, at most
// BadgeCap badges per actor.
const (
	BadgeThreshold = 5
	BadgeCap       = 4
)

// Badge is a non-transferable per-actor token. MetadataRef points at the
// off-chain metadata document; Metadata is the resolved copy.
type Badge struct {
	TokenID     uint64        `json:"token_id"`
	MetadataRef string        `json:"metadata_ref"`
	Metadata    BadgeMetadata `json:"metadata"`
}

type BadgeMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
