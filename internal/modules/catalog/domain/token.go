package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownNetwork = errors.New("unknown network")
	ErrUnknownToken   = errors.New("unknown token")
)

// EscrowContract holds escrowed session payments on every supported network.
const EscrowContract = "0x8B173c2E4C84b4bdD8c656F3d47Bc4259594Bd48"

const NativeAddress = "0x0000000000000000000000000000000000000000"

type Network struct {
	Key     string
	Name    string
	ChainID int64
}

type Token struct {
	Symbol   string
	Network  string
	Address  string
	Decimals int32
	Native   bool
}

var networks = []Network{
	{Key: "arbitrum", Name: "Arbitrum One", ChainID: 42161},
	{Key: "base", Name: "Base", ChainID: 8453},
	{Key: "optimism", Name: "Optimism", ChainID: 10},
	{Key: "polygon", Name: "Polygon", ChainID: 137},
}

var stablecoins = map[string]map[string]string{
	"arbitrum": {
		"USDC": "0xaf88d065e77c8cc2239327c5edb3a432268e5831",
		"USDT": "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9",
	},
	"base": {
		"USDC": "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		"USDT": "0xfde4c96c8593536e31f229ea8f37b2ada2699bb2",
	},
	"optimism": {
		"USDC": "0x0b2c639c533813f4aa9d7837caf62653d097ff85",
		"USDT": "0x94b008aa00579c1307b0ef2c499ad98a8ce58e58",
	},
	"polygon": {
		"USDC": "0x2791bca1f2de4661ed88a30c99a7a9449aa84174",
		"USDT": "0xc2132d05d31c914a87c6611c10748aeb04b58e8f",
	},
}

func Networks() []Network {
	out := make([]Network, len(networks))
	copy(out, networks)
	return out
}

func FindNetwork(key string) (Network, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, n := range networks {
		if n.Key == key {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, key)
}

// Tokens lists every supported token, ordered by network then symbol.
func Tokens() []Token {
	out := make([]Token, 0, len(networks)*3)
	for _, n := range networks {
		out = append(out, Token{Symbol: "ETH", Network: n.Key, Address: NativeAddress, Decimals: 18, Native: true})
		symbols := make([]string, 0, len(stablecoins[n.Key]))
		for symbol := range stablecoins[n.Key] {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			out = append(out, Token{Symbol: symbol, Network: n.Key, Address: stablecoins[n.Key][symbol], Decimals: 6})
		}
	}
	return out
}

func FindToken(network, symbol string) (Token, error) {
	n, err := FindNetwork(network)
	if err != nil {
		return Token{}, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, t := range Tokens() {
		if t.Network == n.Key && t.Symbol == symbol {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("%w: %s on %s", ErrUnknownToken, symbol, n.Key)
}
