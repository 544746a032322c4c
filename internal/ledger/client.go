// Package ledger reads risk pool state from the on-chain insurance contract.
// The contract is the source of truth for solvency figures; this package only
// performs read calls and never submits transactions.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// ClientConfig holds connection parameters for the ledger read client.
type ClientConfig struct {
	RPCURL         string
	PoolContract   string
	ChainID        int
	TokenDecimals  int // base-unit decimals of the staking token
	EngineDecimals int // minor-unit decimals of the reference currency
	Timeout        time.Duration
}

// Client is a read-only JSON-RPC client for the risk pool contract. It
// implements domain.LedgerReader.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	chainID  *big.Int
	timeout  time.Duration

	// Conversion from token base units to engine minor units. Amounts on
	// the wire are uint256 token base units; the engine works in minor
	// units of the reference currency.
	tokenScale  *big.Float
	engineScale *big.Float
}

var _ domain.LedgerReader = (*Client)(nil)

// Getter selectors of the risk pool contract, first four bytes of
// keccak256 of the canonical signature.
var (
	selTotalStaked    = selector("totalStaked()")
	selTotalCoverage  = selector("totalCoverage()")
	selActiveStakers  = selector("activeStakers()")
	selActivePolicies = selector("activePolicies()")
	selClaimsPaid     = selector("claimsPaid()")
	selYieldBps       = selector("yieldBasisPoints()")
)

func selector(signature string) []byte {
	return ethcrypto.Keccak256([]byte(signature))[:4]
}

// New dials the configured JSON-RPC endpoint and verifies the chain ID.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if !common.IsHexAddress(cfg.PoolContract) {
		return nil, fmt.Errorf("ledger: invalid pool contract address %q", cfg.PoolContract)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", cfg.RPCURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		eth:         eth,
		contract:    common.HexToAddress(cfg.PoolContract),
		timeout:     timeout,
		tokenScale:  pow10(cfg.TokenDecimals),
		engineScale: pow10(cfg.EngineDecimals),
	}

	if cfg.ChainID > 0 {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		chainID, err := eth.ChainID(callCtx)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("ledger: chain id: %w", err)
		}
		if chainID.Cmp(big.NewInt(int64(cfg.ChainID))) != 0 {
			eth.Close()
			return nil, fmt.Errorf("ledger: chain id mismatch: endpoint reports %s, configured %d", chainID, cfg.ChainID)
		}
		c.chainID = chainID
	}

	return c, nil
}

func pow10(decimals int) *big.Float {
	if decimals < 0 {
		decimals = 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).SetInt(scale)
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// PoolMetrics reads the full solvency snapshot from the contract. Each field
// is a separate eth_call against the latest block.
func (c *Client) PoolMetrics(ctx context.Context) (domain.RiskPoolMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	totalStaked, err := c.readAmount(ctx, selTotalStaked)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: total staked: %w", err)
	}
	totalCoverage, err := c.readAmount(ctx, selTotalCoverage)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: total coverage: %w", err)
	}
	activeStakers, err := c.readCount(ctx, selActiveStakers)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: active stakers: %w", err)
	}
	activePolicies, err := c.readCount(ctx, selActivePolicies)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: active policies: %w", err)
	}
	claimsPaid, err := c.readAmount(ctx, selClaimsPaid)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: claims paid: %w", err)
	}
	yieldBps, err := c.readCount(ctx, selYieldBps)
	if err != nil {
		return domain.RiskPoolMetrics{}, fmt.Errorf("ledger: yield: %w", err)
	}

	return domain.RiskPoolMetrics{
		TotalStaked:    totalStaked,
		TotalCoverage:  totalCoverage,
		ActiveStakers:  activeStakers,
		ActivePolicies: activePolicies,
		ClaimsPaid:     claimsPaid,
		YieldAPY:       float64(yieldBps) / 100.0,
		FetchedAt:      time.Now().UTC(),
	}, nil
}

// readAmount performs an eth_call for a uint256 token amount and converts it
// from token base units to engine minor units.
func (c *Client) readAmount(ctx context.Context, sel []byte) (float64, error) {
	raw, err := c.call(ctx, sel)
	if err != nil {
		return 0, err
	}

	minor := new(big.Float).SetInt(raw)
	minor.Quo(minor, c.tokenScale)
	minor.Mul(minor, c.engineScale)

	out, _ := minor.Float64()
	return out, nil
}

// readCount performs an eth_call for a plain uint256 counter.
func (c *Client) readCount(ctx context.Context, sel []byte) (int, error) {
	raw, err := c.call(ctx, sel)
	if err != nil {
		return 0, err
	}
	if !raw.IsInt64() {
		return 0, fmt.Errorf("counter overflows int64: %s", raw)
	}
	return int(raw.Int64()), nil
}

func (c *Client) call(ctx context.Context, sel []byte) (*big.Int, error) {
	msg := ethereum.CallMsg{
		To:   &c.contract,
		Data: sel,
	}
	out, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call 0x%x: %w", sel, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call 0x%x: empty return", sel)
	}
	return new(big.Int).SetBytes(out), nil
}
