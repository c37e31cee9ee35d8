package blockchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ClaimSigner issues the authorization signature the WatchReward contract
// verifies inside claim(amount, signature). The signed payload is
// keccak256(recipient || amount) wrapped in the eth_sign prefix.
type ClaimSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewClaimSigner loads the signer's private key from a hex string
func NewClaimSigner(hexKey string) (*ClaimSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load claim signer key: %w", err)
	}

	return &ClaimSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the signer's address, which must match the contract's
// configured signer
func (s *ClaimSigner) Address() string {
	return s.address.Hex()
}

// SignClaim signs a claim authorization for recipient and amount (in wei)
func (s *ClaimSigner) SignClaim(recipient string, amount *big.Int) (string, error) {
	if !common.IsHexAddress(recipient) {
		return "", fmt.Errorf("invalid recipient address: %s", recipient)
	}

	message := crypto.Keccak256(
		common.HexToAddress(recipient).Bytes(),
		common.LeftPadBytes(amount.Bytes(), 32),
	)

	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign claim: %w", err)
	}

	// Contracts expect the legacy 27/28 recovery id
	sig[64] += 27

	return hexutil.Encode(sig), nil
}

// RecoverPersonalSigner recovers the address that personal_sign'ed message.
// Used for wallet login verification.
func RecoverPersonalSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Normalize the recovery id wallets report as 27/28
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover signer: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// PointsToTokenAmount converts a point amount to token wei at the given
// conversion rate (tokens per point, 18 decimals)
func PointsToTokenAmount(points int64, rate decimal.Decimal) *big.Int {
	return rate.Mul(decimal.NewFromInt(points)).Shift(18).BigInt()
}
