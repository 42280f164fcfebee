package pricefeed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// Pyth v2 price account layout.
const (
	pythMagic         = 0xa1b2c3d4
	pythAccountPrice  = 3
	pythStatusTrading = 1

	pythOffsetType   = 8
	pythOffsetExpo   = 20
	pythOffsetPrice  = 208
	pythOffsetStatus = 224
	pythMinSize      = 240
)

var ErrPythNotTrading = errors.New("pyth: aggregate price is not trading")

// PythSource reads the aggregate price of a Pyth price account over Solana
// JSON-RPC.
type PythSource struct {
	client *solanarpc.Client
}

// NewPythSource connects to the given RPC endpoint.
func NewPythSource(endpoint string) *PythSource {
	if endpoint == "" {
		endpoint = solanarpc.MainNetBeta_RPC
	}
	return &PythSource{client: solanarpc.New(endpoint)}
}

func (s *PythSource) Name() string { return "pyth" }

// SpotPrice implements Source.
func (s *PythSource) SpotPrice(ctx context.Context, asset Asset) (float64, error) {
	if asset.PythAccount == "" {
		return 0, backoff.Permanent(fmt.Errorf("pyth: %s: %w", asset.Symbol, ErrNotListed))
	}
	account, err := solana.PublicKeyFromBase58(asset.PythAccount)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("pyth: invalid price account %q: %w", asset.PythAccount, err))
	}

	res, err := s.client.GetAccountInfoWithOpts(ctx, account, &solanarpc.GetAccountInfoOpts{
		Commitment: solanarpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return 0, backoff.Permanent(fmt.Errorf("pyth: account %s: %w", account, err))
		}
		return 0, fmt.Errorf("pyth: get account %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return 0, backoff.Permanent(fmt.Errorf("pyth: account %s has no data", account))
	}

	price, err := decodePythPrice(res.GetBinary())
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	return price, nil
}

// decodePythPrice extracts price = aggregate * 10^expo.
func decodePythPrice(data []byte) (float64, error) {
	if len(data) < pythMinSize {
		return 0, fmt.Errorf("pyth: account data too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != pythMagic {
		return 0, fmt.Errorf("pyth: bad magic %#x", magic)
	}
	if atype := binary.LittleEndian.Uint32(data[pythOffsetType:]); atype != pythAccountPrice {
		return 0, fmt.Errorf("pyth: account type %d is not a price account", atype)
	}
	if status := binary.LittleEndian.Uint32(data[pythOffsetStatus:]); status != pythStatusTrading {
		return 0, fmt.Errorf("%w: status %d", ErrPythNotTrading, status)
	}

	expo := int32(binary.LittleEndian.Uint32(data[pythOffsetExpo:]))
	agg := int64(binary.LittleEndian.Uint64(data[pythOffsetPrice:]))
	if agg <= 0 {
		return 0, fmt.Errorf("pyth: non-positive aggregate price %d", agg)
	}
	return float64(agg) * math.Pow10(int(expo)), nil
}
