package handler

import (
	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/oracle"
	"flightsurety/pkg/domain"
)

type OperationalResponse struct {
	Operational bool `json:"operational"`
}

// DeploymentResponse tells the front-end and the oracle relay where the
// ledger lives.
type DeploymentResponse struct {
	LedgerEndpoint      string `json:"ledger_endpoint"`
	DataContractAddress string `json:"data_contract_address,omitempty"`
	AppContractAddress  string `json:"app_contract_address,omitempty"`
	Owner               string `json:"owner"`
}

type AirlineResponse struct {
	Address      string   `json:"address"`
	Name         string   `json:"name"`
	Registered   bool     `json:"registered"`
	Funded       bool     `json:"funded"`
	FundedAmount string   `json:"funded_amount"`
	Votes        int      `json:"votes"`
	Voters       []string `json:"voters"`
}

func toAirlineResponse(a airline.Airline) AirlineResponse {
	return AirlineResponse{
		Address:      a.Address.String(),
		Name:         a.Name,
		Registered:   a.Registered,
		Funded:       a.Funded,
		FundedAmount: a.FundedAmount.String(),
		Votes:        len(a.Voters),
		Voters:       addressStrings(a.Voters),
	}
}

type AdmissionResponse struct {
	Candidate  string `json:"candidate"`
	Registered bool   `json:"registered"`
	Early      bool   `json:"early"`
	Votes      int    `json:"votes"`
	Required   int    `json:"required"`
}

func toAdmissionResponse(a airline.Admission) AdmissionResponse {
	return AdmissionResponse{
		Candidate:  a.Candidate.String(),
		Registered: a.Registered,
		Early:      a.Early,
		Votes:      a.Votes,
		Required:   a.Required,
	}
}

type FundingResponse struct {
	Airline string `json:"airline"`
	Amount  string `json:"amount"`
}

type FlightResponse struct {
	ID           string `json:"id"`
	Airline      string `json:"airline"`
	Flight       string `json:"flight"`
	Timestamp    uint64 `json:"timestamp"`
	StatusCode   uint8  `json:"status_code"`
	Status       string `json:"status"`
	RegisteredBy string `json:"registered_by,omitempty"`
}

func toFlightResponse(f flight.Flight) FlightResponse {
	return FlightResponse{
		ID:           f.Key.ID(),
		Airline:      f.Key.Airline.String(),
		Flight:       f.Key.Flight,
		Timestamp:    f.Key.Timestamp,
		StatusCode:   uint8(f.Status),
		Status:       f.Status.String(),
		RegisteredBy: f.RegisteredBy.String(),
	}
}

type FlightListResponse struct {
	Flights []FlightResponse `json:"flights"`
}

type StatusRequestResponse struct {
	Index    uint8  `json:"index"`
	FlightID string `json:"flight_id"`
}

type OracleResponse struct {
	Address string   `json:"address"`
	Indexes [3]uint8 `json:"indexes"`
}

func toOracleResponse(o oracle.Oracle) OracleResponse {
	return OracleResponse{Address: o.Address.String(), Indexes: o.Indexes}
}

type SubmissionResponse struct {
	Index     uint8  `json:"index"`
	Status    string `json:"status"`
	Counted   bool   `json:"counted"`
	Votes     int    `json:"votes"`
	Finalized bool   `json:"finalized"`
	Credited  int    `json:"credited"`
}

func toSubmissionResponse(sub oracle.Submission) SubmissionResponse {
	return SubmissionResponse{
		Index:     sub.Key.Index,
		Status:    sub.Status.String(),
		Counted:   sub.Counted,
		Votes:     sub.Votes,
		Finalized: sub.Finalized,
		Credited:  len(sub.Credits),
	}
}

type PolicyResponse struct {
	Passenger string `json:"passenger"`
	FlightID  string `json:"flight_id"`
	Premium   string `json:"premium"`
	Credited  bool   `json:"credited"`
}

func toPolicyResponse(p insurance.Policy) PolicyResponse {
	return PolicyResponse{
		Passenger: p.Passenger.String(),
		FlightID:  p.Flight.ID(),
		Premium:   p.Premium.String(),
		Credited:  p.Credited,
	}
}

type BalanceResponse struct {
	Passenger string `json:"passenger"`
	Balance   string `json:"balance"`
}

type WithdrawalResponse struct {
	Passenger string `json:"passenger"`
	Amount    string `json:"amount"`
}

func addressStrings(in []domain.Address) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		out = append(out, a.String())
	}
	return out
}
