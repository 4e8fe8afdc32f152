package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const erc721ABIJSON = `[{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

var erc721ABI = mustParseABI(erc721ABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid erc721 abi: %v", err))
	}
	return parsed
}

// EthReader implements Reader over a fixed preference list of JSON-RPC
// endpoints. Endpoints are tried in order; a later endpoint is only
// consulted when the earlier one fails at the transport level. A
// contract revert is a definitive answer and is never retried.
type EthReader struct {
	rpcURLs []string
	logger  *zap.Logger
}

// Compile-time interface compliance check
var _ Reader = (*EthReader)(nil)

// NewEthReader creates a chain reader over the given RPC endpoints.
func NewEthReader(rpcURLs []string, logger *zap.Logger) (*EthReader, error) {
	urls := make([]string, 0, len(rpcURLs))
	for _, u := range rpcURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no rpc endpoints configured")
	}
	return &EthReader{rpcURLs: urls, logger: logger}, nil
}

// OwnerOf calls ownerOf(tokenId) on the contract, failing over across
// the configured endpoints.
func (r *EthReader) OwnerOf(ctx context.Context, contract common.Address, tokenID int64) (common.Address, error) {
	data, err := erc721ABI.Pack("ownerOf", big.NewInt(tokenID))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf call: %w", err)
	}

	var lastErr error
	for _, url := range r.rpcURLs {
		owner, err := r.callOwnerOf(ctx, url, contract, data)
		if err == nil {
			return owner, nil
		}
		if err == ErrNotMinted {
			return common.Address{}, ErrNotMinted
		}
		r.logger.Warn("rpc endpoint failed, trying next",
			zap.String("rpc", url),
			zap.Error(err),
		)
		lastErr = err
	}

	return common.Address{}, fmt.Errorf("%w: %v", ErrAllEndpoints, lastErr)
}

func (r *EthReader) callOwnerOf(ctx context.Context, url string, contract common.Address, data []byte) (common.Address, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to dial rpc: %w", err)
	}
	defer client.Close()

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		if isRevert(err) {
			return common.Address{}, ErrNotMinted
		}
		return common.Address{}, fmt.Errorf("call failed: %w", err)
	}
	if len(out) == 0 {
		// No code at the address or empty return: treat like a revert.
		return common.Address{}, ErrNotMinted
	}

	results, err := erc721ABI.Unpack("ownerOf", out)
	if err != nil || len(results) != 1 {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf result: %w", err)
	}
	owner, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type %T", results[0])
	}
	return owner, nil
}

func isRevert(err error) bool {
	return strings.Contains(err.Error(), "execution reverted") ||
		strings.Contains(err.Error(), "revert")
}
