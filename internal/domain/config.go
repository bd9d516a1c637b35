package domain

// Burn rate is expressed in basis points: 1 bp = 0.01%.
const (
	BasisPointDenominator = 10_000
	MaxBurnRateBp         = 10_000
)

// TokenConfig is the singleton token-economy configuration.
// Corresponds to the token_config table in PostgreSQL.
type TokenConfig struct {
	Authority    Address // administrative identity, immutable after init
	Mint         Address // asset identifier
	BurnRateBp   uint16  // basis points deducted from every task payment
	TotalBurned  uint64  // monotonically non-decreasing burn accumulator
	UtilityVault Address // configured burn destination
	Version      int64   // optimistic-concurrency version, bumped on update
	CreatedAt    int64   // record creation timestamp (unix seconds)
}
