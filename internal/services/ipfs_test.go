package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	svc := NewIPFSService("https://gateway.example.com/")

	cases := []struct {
		name string
		ref  string
		want string
	}{
		{"ipfs scheme", "ipfs://QmAbc123", "https://gateway.example.com/ipfs/QmAbc123"},
		{"bare identifier", "QmAbc123", "https://gateway.example.com/ipfs/QmAbc123"},
		{"http passthrough", "http://other.example.com/x", "http://other.example.com/x"},
		{"https passthrough", "https://gateway.example.com/ipfs/QmAbc123", "https://gateway.example.com/ipfs/QmAbc123"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.ResolveURL(tc.ref)
			assert.Equal(t, tc.want, got)
			// Resolving an already resolved URL changes nothing.
			assert.Equal(t, got, svc.ResolveURL(got))
		})
	}
}

func TestFetchBadgeMetadataRewritesImage(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIPFSService(env.cfg.ContentGatewayURL)

	meta, err := svc.FetchBadgeMetadata(context.Background(), "ipfs://badge-tier-2")
	require.NoError(t, err)
	assert.Equal(t, "Reviewer Tier 2", meta.Name)
	assert.Equal(t, env.cfg.ContentGatewayURL+"/ipfs/badge-image-2", meta.Image)
}

func TestFetchBadgeMetadataNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIPFSService(env.cfg.ContentGatewayURL)

	_, err := svc.FetchBadgeMetadata(context.Background(), "ipfs://no-such-document")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
