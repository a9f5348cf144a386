// Package clob places signed orders on the Polymarket CLOB.
//
// Orders for the CTF Exchange are EIP-712 signed on the client; the REST
// API authenticates with HMAC (L2) headers derived from API credentials.
// Reference: https://github.com/Polymarket/py-clob-client
package clob

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// CTF Exchange constants (Polygon mainnet).
const (
	polygonChainID     = 137
	ctfExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	zeroAddress        = "0x0000000000000000000000000000000000000000"
)

// Order sides on the exchange contract.
const (
	sideBuy  = 0
	sideSell = 1
)

// Order is an unsigned CTF Exchange order.
type Order struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// SignedOrder pairs an order with its EIP-712 signature.
type SignedOrder struct {
	Order     *Order
	Signature string
}

// Signer builds and signs CTF Exchange orders.
type Signer struct {
	privateKey    *ecdsa.PrivateKey
	signerAddress common.Address
	funderAddress common.Address
	signatureType int
}

// NewSigner creates an order signer. funderAddress may equal the signer
// address for EOA wallets; proxy wallets fund from a separate address.
func NewSigner(privateKey *ecdsa.PrivateKey, funderAddress common.Address, signatureType int) *Signer {
	return &Signer{
		privateKey:    privateKey,
		signerAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		funderAddress: funderAddress,
		signatureType: signatureType,
	}
}

// BuyOrder builds a market-style buy: spend size*price USDC for size shares.
func (s *Signer) BuyOrder(tokenID string, price, size decimal.Decimal) (*Order, error) {
	tokenInt, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", tokenID)
	}

	maker := s.funderAddress
	if maker == (common.Address{}) {
		maker = s.signerAddress
	}

	// USDC and shares both use 6 decimal units. The maker amount is
	// truncated, never rounded up, so it cannot exceed the budget.
	usdc := size.Mul(price)
	return &Order{
		Salt:          big.NewInt(rand.Int63()),
		Maker:         maker,
		Signer:        s.signerAddress,
		Taker:         common.HexToAddress(zeroAddress),
		TokenID:       tokenInt,
		MakerAmount:   toUnits(usdc, true),
		TakerAmount:   toUnits(size, false),
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(1000),
		Side:          sideBuy,
		SignatureType: uint8(s.signatureType),
	}, nil
}

// Sign produces the EIP-712 signature for an order.
func (s *Signer) Sign(order *Order) (*SignedOrder, error) {
	typedData := buildTypedData(order)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// keccak256("\x19\x01" || domainSeparator || messageHash)
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash))))

	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}

	return &SignedOrder{Order: order, Signature: fmt.Sprintf("0x%x", sig)}, nil
}

// apiPayload converts a signed order to the /order request body. The owner
// must be the API key, and the signature lives inside the order object.
func (o *SignedOrder) apiPayload(apiKey, orderType string) map[string]any {
	side := "BUY"
	if o.Order.Side == sideSell {
		side = "SELL"
	}
	return map[string]any{
		"order": map[string]any{
			"salt":          o.Order.Salt.Int64(),
			"maker":         o.Order.Maker.Hex(),
			"signer":        o.Order.Signer.Hex(),
			"taker":         o.Order.Taker.Hex(),
			"tokenId":       o.Order.TokenID.String(),
			"makerAmount":   o.Order.MakerAmount.String(),
			"takerAmount":   o.Order.TakerAmount.String(),
			"expiration":    o.Order.Expiration.String(),
			"nonce":         o.Order.Nonce.String(),
			"feeRateBps":    o.Order.FeeRateBps.String(),
			"side":          side,
			"signatureType": int(o.Order.SignatureType),
			"signature":     o.Signature,
		},
		"owner":     apiKey,
		"orderType": orderType,
		"postOnly":  false,
	}
}

func buildTypedData(order *Order) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(polygonChainID),
			VerifyingContract: common.HexToAddress(ctfExchangeAddress).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt.String(),
			"maker":         order.Maker.Hex(),
			"signer":        order.Signer.Hex(),
			"taker":         order.Taker.Hex(),
			"tokenId":       order.TokenID.String(),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"expiration":    order.Expiration.String(),
			"nonce":         order.Nonce.String(),
			"feeRateBps":    order.FeeRateBps.String(),
			"side":          fmt.Sprintf("%d", order.Side),
			"signatureType": fmt.Sprintf("%d", order.SignatureType),
		},
	}
}

// toUnits scales a decimal amount to 6-decimal token units. Maker amounts
// are truncated so an order can never spend more than budgeted; taker
// amounts are rounded to 4 decimals first.
func toUnits(amount decimal.Decimal, truncate bool) *big.Int {
	if truncate {
		return amount.Shift(6).Truncate(0).BigInt()
	}
	return amount.Round(4).Shift(6).Truncate(0).BigInt()
}
