package models

// Requests for pool HTTP endpoints. Defined in domain for consistency and reuse.

type CoinsRequest struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=new stable warning"`
}

type CoinRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}

type CandlesRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
