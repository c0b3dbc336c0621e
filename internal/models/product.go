// models/product.go
package models

import "math/big"

// Product is one catalog entry. The code is derived on chain from the name
// (keccak-256), so it is immutable and a deleted name can never be re-added.
type Product struct {
	Code      string   `json:"code"`
	Name      string   `json:"name"`
	UnitPrice *big.Int `json:"unit_price"`
	ImageRef  string   `json:"image_ref"`
	ImageURL  string   `json:"image_url,omitempty"`
	Exists    bool     `json:"exists"`
}

// Clone returns an independent copy, including the price.
func (p Product) Clone() Product {
	out := p
	if p.UnitPrice != nil {
		out.UnitPrice = new(big.Int).Set(p.UnitPrice)
	}
	return out
}
