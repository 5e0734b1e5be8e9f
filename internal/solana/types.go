package solana

// Well-known program IDs.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbd2tLCgkJyBeUgT4ZHgnkNSLK65dBmLP4qk"
)

// Network names recognized by Endpoints.
const (
	NetworkDevnet      = "devnet"
	NetworkMainnetBeta = "mainnet-beta"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// Endpoints returns the public RPC and WebSocket endpoints for a network.
// Any network other than mainnet-beta resolves to devnet.
func Endpoints(network string) (rpc, ws string) {
	if network == NetworkMainnetBeta {
		return "https://api.mainnet-beta.solana.com", "wss://api.mainnet-beta.solana.com"
	}
	return "https://api.devnet.solana.com", "wss://api.devnet.solana.com"
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// TokenAmount is a token balance in smallest units plus its decimals.
type TokenAmount struct {
	Amount         uint64
	Decimals       uint8
	UIAmountString string
}
