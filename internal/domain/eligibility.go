package domain

// EligibilityRecord stores the last distribution time of a wallet.
// Corresponds to one entry of the eligibility file or the eligibility table.
type EligibilityRecord struct {
	Wallet             string // wallet address
	LastDistributionMs int64  // Unix timestamp in milliseconds
}
