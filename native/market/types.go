package market

import "math/big"

// feeDenominator scales the platform fee expressed in basis points.
const feeDenominator = 10_000

// Registry is the singleton collectible-registry state: how many sequential
// ids have been minted and which principal may mint the next one.
type Registry struct {
	Minted    uint64
	Authority [20]byte
}

// Offer is a seller-posted intent to sell one collectible id. A restricted
// offer names the only account allowed to buy. An offer stored in state is
// active by definition; settlement and transfers delete it.
type Offer struct {
	MinPrice   *big.Int
	Restricted bool
	Buyer      [20]byte
}

// EnsureDefaults replaces nil fields with zero values.
func (o *Offer) EnsureDefaults() *Offer {
	if o.MinPrice == nil {
		o.MinPrice = big.NewInt(0)
	}
	return o
}
