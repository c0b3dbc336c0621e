// services/ipfs.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coffeechain/coffeechain-backend/internal/models"
)

// IPFSService resolves content identifiers against a configured HTTP
// gateway and fetches badge metadata documents.
type IPFSService struct {
	gatewayURL string
	client     *http.Client
}

func NewIPFSService(gatewayURL string) *IPFSService {
	return &IPFSService{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// ResolveURL rewrites a scheme://identifier reference to a gateway URL.
// The rewrite is textual and idempotent: an HTTP(S) reference passes
// through untouched.
func (s *IPFSService) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	id := ref
	if i := strings.Index(ref, "://"); i >= 0 {
		id = ref[i+3:]
	}
	return s.gatewayURL + "/ipfs/" + id
}

// FetchBadgeMetadata retrieves and decodes one badge's metadata document,
// rewriting its image reference for direct display.
func (s *IPFSService) FetchBadgeMetadata(ctx context.Context, ref string) (*models.BadgeMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ResolveURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch returned status %d", resp.StatusCode)
	}

	var meta models.BadgeMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %v", err)
	}
	meta.Image = s.ResolveURL(meta.Image)
	return &meta, nil
}
