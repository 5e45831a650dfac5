package config

import "github.com/shopspring/decimal"

// Rules are the fixed constants the ledger enforces. They are not read from the
// environment; every node of the permissioned ledger must agree on them.
type Rules struct {
	// FundThreshold is the minimum an airline pays before it may propose or vote.
	FundThreshold decimal.Decimal
	// PremiumCap bounds a single insurance premium.
	PremiumCap decimal.Decimal
	// PayoutMultiplier is applied to the premium when a flight is late due to the airline.
	PayoutMultiplier decimal.Decimal
	// MinOracleResponses agreeing oracles finalize a request.
	MinOracleResponses int
	// EarlyGrowthLimit airlines are admitted without a vote.
	EarlyGrowthLimit int
	// OracleFee is the registration fee paid by an oracle.
	OracleFee decimal.Decimal
	// IndexRange is the exclusive upper bound of oracle index values.
	IndexRange uint8
}

// Defaults returns the ledger's production rules.
func Defaults() Rules {
	return Rules{
		FundThreshold:      decimal.NewFromInt(10),
		PremiumCap:         decimal.NewFromInt(1),
		PayoutMultiplier:   decimal.RequireFromString("1.5"),
		MinOracleResponses: 3,
		EarlyGrowthLimit:   4,
		OracleFee:          decimal.NewFromInt(1),
		IndexRange:         10,
	}
}

// IndexesPerOracle is the number of distinct indexes assigned to each oracle.
const IndexesPerOracle = 3
