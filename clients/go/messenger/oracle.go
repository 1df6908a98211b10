package messenger

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// balanceOfSelector is the 4-byte selector of balanceOf(address), the only
// contract method the messenger ever calls.
var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

// NFTOracle answers ownership queries by reading the token balance of an
// address on a fixed ERC-721 contract. The call is read-only (eth_call at the
// latest block); no transaction is ever signed or sent.
type NFTOracle struct {
	client   *ethclient.Client
	contract common.Address
}

// DialNFTOracle connects to an Ethereum JSON-RPC endpoint.
func DialNFTOracle(ctx context.Context, rpcURL, contractAddress string) (*NFTOracle, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", contractAddress)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc endpoint: %w", err)
	}

	return &NFTOracle{
		client:   client,
		contract: common.HexToAddress(contractAddress),
	}, nil
}

// BalanceOf returns the token balance of address on the gating contract.
// Ownership is balance > 0; the gate interprets the value.
func (o *NFTOracle) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid wallet address: %q", address)
	}
	owner := common.HexToAddress(address)

	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)

	out, err := o.client.CallContract(ctx, ethereum.CallMsg{
		To:   &o.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}

	return new(big.Int).SetBytes(out), nil
}

// Close releases the RPC connection.
func (o *NFTOracle) Close() {
	o.client.Close()
}
