package insurance

import (
	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/flight"
	"flightsurety/pkg/domain"
)

// Policy is one passenger's cover on one flight.
type Policy struct {
	Passenger domain.Address  `json:"passenger"`
	Flight    flight.Key      `json:"flight"`
	Premium   decimal.Decimal `json:"premium"`
	Credited  bool            `json:"credited"`
	Payout    decimal.Decimal `json:"payout"`
}

// Credit is a payout added to a passenger's withdrawable balance.
type Credit struct {
	Passenger domain.Address  `json:"passenger"`
	Flight    flight.Key      `json:"flight"`
	Amount    decimal.Decimal `json:"amount"`
}

// Withdrawal is the result of a successful Pay.
type Withdrawal struct {
	Passenger domain.Address  `json:"passenger"`
	Amount    decimal.Decimal `json:"amount"`
}

type policyKey struct {
	passenger domain.Address
	flight    flight.Key
}
