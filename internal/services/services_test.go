package services

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coffeechain/coffeechain-backend/internal/config"
	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/internal/models"
)

const (
	testOwner = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	testUser  = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
	testOther = "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"
)

var testAddrs = ledger.Addresses{
	Catalog: "0xcat",
	Reviews: "0xrev",
	Token:   "0xtok",
	Badge:   "0xbad",
}

type testEnv struct {
	mem     *ledger.Memory
	cfg     *config.Config
	ownerGW *ledger.Gateway
	session *Session
}

// newTestEnv wires a session for testUser against a fresh in-memory ledger
// and a metadata server that resolves every minted badge tier.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ipfs/badge-tier-") {
			http.NotFound(w, r)
			return
		}
		tier := strings.TrimPrefix(r.URL.Path, "/ipfs/badge-tier-")
		_ = json.NewEncoder(w).Encode(models.BadgeMetadata{
			Name:        "Reviewer Tier " + tier,
			Description: "Earned for posting reviews",
			Image:       "ipfs://badge-image-" + tier,
		})
	}))
	t.Cleanup(srv.Close)

	mem := ledger.NewMemory(testOwner, testAddrs)
	cfg := &config.Config{
		ContentGatewayURL: srv.URL,
		CatalogAddress:    testAddrs.Catalog,
		ReviewsAddress:    testAddrs.Reviews,
		TokenAddress:      testAddrs.Token,
		BadgeAddress:      testAddrs.Badge,
	}

	session := NewSession(mem.Bind(testUser), cfg, testUser)
	t.Cleanup(session.Close)

	return &testEnv{
		mem:     mem,
		cfg:     cfg,
		ownerGW: ledger.NewGateway(mem.Bind(testOwner), testAddrs),
		session: session,
	}
}

func (e *testEnv) addProduct(t *testing.T, name string, price int64) string {
	t.Helper()
	ctx := context.Background()
	handle, err := e.ownerGW.Submit(ctx, e.ownerGW.AddProductCall(name, big.NewInt(price), "ipfs://"+name+"-image"))
	require.NoError(t, err)
	_, err = e.ownerGW.AwaitInclusion(ctx, handle)
	require.NoError(t, err)
	return ledger.DeriveCode(name)
}

func (e *testEnv) deleteProduct(t *testing.T, code string) {
	t.Helper()
	_, err := e.ownerGW.Submit(context.Background(), e.ownerGW.DeleteProductCall(code))
	require.NoError(t, err)
}

// postReviewAs submits a review outside the coordinator, as if another
// client (or another actor entirely) had done it.
func (e *testEnv) postReviewAs(t *testing.T, actor, code string, score int, text string) {
	t.Helper()
	gw := ledger.NewGateway(e.mem.Bind(actor), testAddrs)
	_, err := gw.Submit(context.Background(), gw.ReviewCall(code, score, text))
	require.NoError(t, err)
}
