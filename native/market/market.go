package market

import (
	"math/big"

	"stakedrop/core/events"
	"stakedrop/core/types"
)

// OfferForSale posts an open offer on an id. Only the current owner may call,
// and only once the full supply has been minted; any prior offer on the id is
// overwritten.
func (e *Engine) OfferForSale(caller [20]byte, id uint64, minPrice *big.Int) error {
	return e.offer(caller, id, minPrice, false, [20]byte{})
}

// OfferForSaleToAddress posts an offer only the named buyer can settle.
func (e *Engine) OfferForSaleToAddress(caller [20]byte, id uint64, minPrice *big.Int, buyer [20]byte) error {
	return e.offer(caller, id, minPrice, true, buyer)
}

func (e *Engine) offer(caller [20]byte, id uint64, minPrice *big.Int, restricted bool, buyer [20]byte) error {
	if e.state == nil {
		return ErrNilState
	}
	if minPrice == nil || minPrice.Sign() <= 0 {
		return ErrZeroPrice
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return err
	}
	// The marketplace opens only once the full supply exists; no id can be
	// listed while minting is still running.
	if reg.Minted < e.supplyCap {
		return ErrMintingActive
	}
	owner, ok, err := e.state.CollectibleOwner(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	if owner != caller {
		return ErrUnauthorized
	}
	stored := &Offer{
		MinPrice:   new(big.Int).Set(minPrice),
		Restricted: restricted,
		Buyer:      buyer,
	}
	if err := e.state.PutCollectibleOffer(id, stored); err != nil {
		return err
	}
	e.emit(events.OfferCreated{
		ID:         id,
		Seller:     caller,
		MinPrice:   new(big.Int).Set(minPrice),
		Restricted: restricted,
		Buyer:      buyer,
	})
	return nil
}

// OfferFor returns the active offer on an id, if any.
func (e *Engine) OfferFor(id uint64) (*Offer, bool, error) {
	if e.state == nil {
		return nil, false, ErrNilState
	}
	offer, ok, err := e.state.CollectibleOffer(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return offer.EnsureDefaults(), true, nil
}

// Buy settles the active offer on an id with the caller's payment. The offer
// record is cleared and ownership moved before any balance changes, so a
// repeat purchase of the same id always fails on the missing offer. The full
// paid value is split between the platform and the seller; overpayment beyond
// the minimum price is retained and split, not refunded.
func (e *Engine) Buy(caller [20]byte, id uint64, value *big.Int) error {
	if e.state == nil {
		return ErrNilState
	}
	offer, ok, err := e.state.CollectibleOffer(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInactiveOffer
	}
	offer.EnsureDefaults()
	if offer.Restricted && offer.Buyer != caller {
		return ErrNotAuthorizedBuyer
	}
	if value == nil || value.Sign() <= 0 || value.Cmp(offer.MinPrice) < 0 {
		return ErrBelowMinPrice
	}
	seller, ok, err := e.state.CollectibleOwner(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	buyerAcc, err := e.state.GetAccount(caller)
	if err != nil {
		return err
	}
	if buyerAcc.EnsureDefaults().BalanceNative.Cmp(value) < 0 {
		return ErrInsufficientFunds
	}

	// Effects before interactions: the offer is gone and ownership moved
	// before a single unit of value changes hands.
	if err := e.moveOwnership(id, seller, caller); err != nil {
		return err
	}

	paid := new(big.Int).Set(value)
	fee := new(big.Int).Mul(paid, new(big.Int).SetUint64(e.platformFeeBps))
	fee.Quo(fee, big.NewInt(feeDenominator))
	sellerShare := new(big.Int).Sub(paid, fee)

	if err := e.settle(caller, seller, paid, fee, sellerShare); err != nil {
		return err
	}
	e.emit(events.SaleSettled{
		ID:          id,
		Seller:      seller,
		Buyer:       caller,
		Paid:        paid,
		PlatformFee: fee,
	})
	return nil
}

// settle applies the payment split as net balance deltas so aliased parties
// (seller buying back, platform acting as seller) stay consistent.
func (e *Engine) settle(buyer, seller [20]byte, paid, fee, sellerShare *big.Int) error {
	deltas := newBalanceSheet()
	deltas.sub(buyer, paid)
	deltas.add(e.platform, fee)
	deltas.add(seller, sellerShare)
	return deltas.apply(e.state)
}

// balanceSheet accumulates native-balance deltas per address and applies them
// with a single load-modify-store per account.
type balanceSheet struct {
	order  [][20]byte
	deltas map[[20]byte]*big.Int
}

func newBalanceSheet() *balanceSheet {
	return &balanceSheet{deltas: make(map[[20]byte]*big.Int)}
}

func (b *balanceSheet) entry(addr [20]byte) *big.Int {
	if delta, ok := b.deltas[addr]; ok {
		return delta
	}
	delta := big.NewInt(0)
	b.deltas[addr] = delta
	b.order = append(b.order, addr)
	return delta
}

func (b *balanceSheet) add(addr [20]byte, amount *big.Int) {
	b.entry(addr).Add(b.entry(addr), amount)
}

func (b *balanceSheet) sub(addr [20]byte, amount *big.Int) {
	b.entry(addr).Sub(b.entry(addr), amount)
}

func (b *balanceSheet) apply(state engineState) error {
	accounts := make([]*types.Account, len(b.order))
	for i, addr := range b.order {
		account, err := state.GetAccount(addr)
		if err != nil {
			return err
		}
		account.EnsureDefaults()
		next := new(big.Int).Add(account.BalanceNative, b.deltas[addr])
		if next.Sign() < 0 {
			return ErrInsufficientFunds
		}
		account.BalanceNative = next
		accounts[i] = account
	}
	for i, addr := range b.order {
		if err := state.PutAccount(addr, accounts[i]); err != nil {
			return err
		}
	}
	return nil
}
