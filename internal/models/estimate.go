package models

import "math/big"

// Call is a fully bound contract invocation: the same value is used for
// estimation and for the later submission, so the two cannot drift.
type Call struct {
	Contract string
	Method   string
	Args     []interface{}
	Value    *big.Int
}

type CostEstimate struct {
	ResourceUnits uint64   `json:"resource_units"`
	UnitPrice     *big.Int `json:"unit_price"`
	ResourceCost  *big.Int `json:"resource_cost"`
	TotalCost     *big.Int `json:"total_cost"`
}
