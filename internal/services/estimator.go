package services

import (
	"context"
	"math/big"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/internal/models"
)

// Estimator prices a prospective operation without committing it. It must
// be given the exact Call that will later be submitted; the coordinator
// freezes the two together.
type Estimator struct {
	client ledger.Client
}

func NewEstimator(client ledger.Client) *Estimator {
	return &Estimator{client: client}
}

// Estimate is a pure function of current ledger state. A would-be revert
// surfaces here with the same semantics as submission, so malformed
// operations are caught before the user commits.
func (e *Estimator) Estimate(ctx context.Context, call models.Call) (*models.CostEstimate, error) {
	units, err := e.client.EstimateUnits(ctx, call.Contract, call.Method, call.Value, call.Args...)
	if err != nil {
		return nil, err
	}
	unitPrice, err := e.client.UnitPrice(ctx)
	if err != nil {
		return nil, err
	}

	resourceCost := new(big.Int).Mul(new(big.Int).SetUint64(units), unitPrice)
	totalCost := new(big.Int).Set(resourceCost)
	if call.Value != nil {
		totalCost.Add(totalCost, call.Value)
	}

	return &models.CostEstimate{
		ResourceUnits: units,
		UnitPrice:     unitPrice,
		ResourceCost:  resourceCost,
		TotalCost:     totalCost,
	}, nil
}
