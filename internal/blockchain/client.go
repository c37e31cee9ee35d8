package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// receiptPollInterval is how often the confirmation wait re-checks the chain.
const receiptPollInterval = 2 * time.Second

// Client handles EVM chain interactions for the claim flow
type Client struct {
	eth            *ethclient.Client
	chainID        *big.Int
	rewardContract common.Address
	tokenContract  common.Address
	rewardABI      abi.ABI
	tokenABI       abi.ABI
	logger         zerolog.Logger
}

// NewClient dials the RPC endpoint and resolves the connected chain id
func NewClient(ctx context.Context, rpcURL, rewardContract, tokenContract string, logger zerolog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	rewardParsed, err := abi.JSON(strings.NewReader(watchRewardABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reward contract ABI: %w", err)
	}
	tokenParsed, err := abi.JSON(strings.NewReader(watchTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	logger.Info().
		Str("rpc_url", rpcURL).
		Str("chain_id", chainID.String()).
		Msg("chain client connected")

	return &Client{
		eth:            eth,
		chainID:        chainID,
		rewardContract: common.HexToAddress(rewardContract),
		tokenContract:  common.HexToAddress(tokenContract),
		rewardABI:      rewardParsed,
		tokenABI:       tokenParsed,
		logger:         logger,
	}, nil
}

// ChainID returns the connected chain id
func (c *Client) ChainID() int64 {
	return c.chainID.Int64()
}

// RewardContract returns the WatchReward contract address
func (c *Client) RewardContract() string {
	return c.rewardContract.Hex()
}

// ValidateWalletAddress validates an EVM wallet address format
func ValidateWalletAddress(address string) bool {
	return common.IsHexAddress(address)
}

// WaitForReceipt blocks until the transaction is included or the timeout
// elapses. The returned receipt may carry a failed status; callers must
// check receipt.Status.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*types.Receipt, error) {
	hash := common.HexToHash(txHash)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for transaction %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// HasClaimed reads the reward contract's claimed flag for a wallet
func (c *Client) HasClaimed(ctx context.Context, wallet string) (bool, error) {
	data, err := c.rewardABI.Pack("claimed", common.HexToAddress(wallet))
	if err != nil {
		return false, fmt.Errorf("failed to pack claimed call: %w", err)
	}

	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.rewardContract, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("claimed call failed: %w", err)
	}

	out, err := c.rewardABI.Unpack("claimed", res)
	if err != nil {
		return false, fmt.Errorf("failed to unpack claimed result: %w", err)
	}

	claimed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected claimed result type %T", out[0])
	}
	return claimed, nil
}

// GetTokenBalance gets the OWT balance for a wallet, in whole tokens
func (c *Client) GetTokenBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	data, err := c.tokenABI.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.tokenContract, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf call failed: %w", err)
	}

	out, err := c.tokenABI.Unpack("balanceOf", res)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}

	// 18 decimals
	return decimal.NewFromBigInt(balance, -18), nil
}
