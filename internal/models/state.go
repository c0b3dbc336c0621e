package models

import "math/big"

// Wallet is the viewer's own aggregate slice of derived state.
type Wallet struct {
	LoyaltyBalance *big.Int `json:"loyalty_balance"`
	ReviewCount    uint64   `json:"review_count"`
	BadgeUnlocked  bool     `json:"badge_unlocked"`
}

// Snapshot is the full derived state consumed by the presentation layer.
// Each slice is replaced wholesale by its owning refresh; readers get copies.
type Snapshot struct {
	Products      []Product `json:"products"`
	ViewedProduct string    `json:"viewed_product"`
	Reviews       []Review  `json:"reviews"`
	Wallet        Wallet    `json:"wallet"`
	Badges        []Badge   `json:"badges"`
}

// Clone deep-copies the snapshot so presentation reads never alias
// projector-owned memory.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Products != nil {
		out.Products = make([]Product, len(s.Products))
		for i, p := range s.Products {
			out.Products[i] = p.Clone()
		}
	}
	if s.Reviews != nil {
		out.Reviews = make([]Review, len(s.Reviews))
		copy(out.Reviews, s.Reviews)
	}
	if s.Badges != nil {
		out.Badges = make([]Badge, len(s.Badges))
		copy(out.Badges, s.Badges)
	}
	if s.Wallet.LoyaltyBalance != nil {
		out.Wallet.LoyaltyBalance = new(big.Int).Set(s.Wallet.LoyaltyBalance)
	}
	return out
}
