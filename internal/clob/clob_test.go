package clob

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testSigner(t *testing.T, funder string) *Signer {
	t.Helper()
	key, err := crypto.HexToECDSA(testPrivKey)
	require.NoError(t, err)
	return NewSigner(key, common.HexToAddress(funder), 0)
}

func TestBuyOrderAmounts(t *testing.T) {
	s := testSigner(t, "")

	order, err := s.BuyOrder("123456", decimal.RequireFromString("0.97"), decimal.RequireFromString("10"))
	require.NoError(t, err)

	// 10 shares at 0.97 USDC: 9.7 USDC in, 10 shares out, 6 decimal units.
	assert.Equal(t, "9700000", order.MakerAmount.String())
	assert.Equal(t, "10000000", order.TakerAmount.String())
	assert.Equal(t, uint8(sideBuy), order.Side)
	assert.Equal(t, big.NewInt(123456), order.TokenID)
}

func TestBuyOrderMakerAmountTruncates(t *testing.T) {
	s := testSigner(t, "")

	// 3 * 0.333333333 would round up at the 6th decimal; it must truncate.
	order, err := s.BuyOrder("1", decimal.RequireFromString("0.333333333"), decimal.RequireFromString("3"))
	require.NoError(t, err)
	assert.Equal(t, "999999", order.MakerAmount.String())
}

func TestBuyOrderFunderFallback(t *testing.T) {
	s := testSigner(t, "")
	order, err := s.BuyOrder("1", decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, s.signerAddress, order.Maker, "empty funder falls back to signer")

	funded := testSigner(t, "0x00000000000000000000000000000000000000aa")
	order, err = funded.BuyOrder("1", decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa"), order.Maker)
	assert.Equal(t, funded.signerAddress, order.Signer, "signer stays the key address")
}

func TestSignProducesRecoverableSignature(t *testing.T) {
	s := testSigner(t, "")
	order, err := s.BuyOrder("777", decimal.RequireFromString("0.95"), decimal.NewFromInt(5))
	require.NoError(t, err)

	signed, err := s.Sign(order)
	require.NoError(t, err)
	require.Len(t, signed.Signature, 2+65*2, "0x prefix plus 65 signature bytes")
	assert.Equal(t, "0x", signed.Signature[:2])
}

func TestBuyOrderRejectsBadTokenID(t *testing.T) {
	s := testSigner(t, "")
	_, err := s.BuyOrder("not-a-number", decimal.NewFromInt(1), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestBuyFOKSubmitsAuthedRequest(t *testing.T) {
	var gotHeaders http.Header
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		json.NewEncoder(w).Encode(OrderResponse{Success: true, OrderID: "0xabc", Status: "matched"})
	}))
	defer srv.Close()

	signer := testSigner(t, "")
	client := NewClient(srv.URL, Credentials{
		APIKey:     "key-1",
		Secret:     "c2VjcmV0LXNlY3JldC1zZWNyZXQ=",
		Passphrase: "pass",
	}, signer)

	resp, err := client.BuyFOK(t.Context(), "42", decimal.RequireFromString("0.96"), decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", resp.OrderID)

	assert.Equal(t, "key-1", gotHeaders.Get("POLY_API_KEY"))
	assert.Equal(t, "pass", gotHeaders.Get("POLY_PASSPHRASE"))
	assert.NotEmpty(t, gotHeaders.Get("POLY_SIGNATURE"))
	assert.NotEmpty(t, gotHeaders.Get("POLY_TIMESTAMP"))
	assert.Equal(t, signer.signerAddress.Hex(), gotHeaders.Get("POLY_ADDRESS"))

	assert.Equal(t, "key-1", gotPayload["owner"])
	assert.Equal(t, "FOK", gotPayload["orderType"])
	order := gotPayload["order"].(map[string]any)
	assert.Equal(t, "BUY", order["side"])
	assert.Equal(t, "42", order["tokenId"])
	assert.NotEmpty(t, order["signature"])
}

func TestBuyFOKRejectedOrderReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(OrderResponse{Success: false, ErrorMsg: "not enough balance"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Credentials{APIKey: "k", Secret: "c2VjcmV0", Passphrase: "p"}, testSigner(t, ""))
	_, err := client.BuyFOK(t.Context(), "42", decimal.NewFromInt(1), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough balance")
}

func TestDecodeSecretHandlesUnpadded(t *testing.T) {
	padded, err := decodeSecret("c2VjcmV0LXNlY3JldA==")
	require.NoError(t, err)
	unpadded, err := decodeSecret("c2VjcmV0LXNlY3JldA")
	require.NoError(t, err)
	assert.Equal(t, padded, unpadded)
}
