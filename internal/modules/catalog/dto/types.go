package dto

type TokenOutput struct {
	Symbol   string
	Network  string
	ChainID  int64
	Address  string
	Decimals int32
	Native   bool
	Escrow   string
}
