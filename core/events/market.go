package events

import (
	"math/big"
	"strconv"

	"stakedrop/core/types"
)

const (
	// TypeCollectibleMinted captures a new sequential id entering circulation.
	TypeCollectibleMinted = "market.minted"
	// TypeCollectibleTransferred captures a direct ownership transfer.
	TypeCollectibleTransferred = "market.transferred"
	// TypeOfferCreated captures an owner posting a sale offer.
	TypeOfferCreated = "market.offerCreated"
	// TypeSaleSettled captures an atomic buy with fee split.
	TypeSaleSettled = "market.saleSettled"
	// TypeMintAuthorityChanged records a minting-authority handover.
	TypeMintAuthorityChanged = "market.mintAuthorityChanged"
	// TypeCollectibleClaimed captures a staker claiming a collectible.
	TypeCollectibleClaimed = "stake.collectibleClaimed"
	// TypeCollectiblePurchased captures a direct mint purchase at fixed price.
	TypeCollectiblePurchased = "stake.collectiblePurchased"
)

// CollectibleMinted captures the assignment of the next sequential id.
type CollectibleMinted struct {
	ID     uint64
	Owner  [20]byte
	Minted uint64
}

// EventType satisfies the Event interface.
func (CollectibleMinted) EventType() string { return TypeCollectibleMinted }

// Event converts the structured payload into a broadcastable event.
func (e CollectibleMinted) Event() *types.Event {
	return &types.Event{Type: TypeCollectibleMinted, Attributes: map[string]string{
		"id":     strconv.FormatUint(e.ID, 10),
		"owner":  renderAddress(e.Owner),
		"minted": strconv.FormatUint(e.Minted, 10),
	}}
}

// CollectibleTransferred captures a direct owner-to-owner transfer.
type CollectibleTransferred struct {
	ID   uint64
	From [20]byte
	To   [20]byte
}

// EventType satisfies the Event interface.
func (CollectibleTransferred) EventType() string { return TypeCollectibleTransferred }

// Event converts the structured payload into a broadcastable event.
func (e CollectibleTransferred) Event() *types.Event {
	return &types.Event{Type: TypeCollectibleTransferred, Attributes: map[string]string{
		"id":   strconv.FormatUint(e.ID, 10),
		"from": renderAddress(e.From),
		"to":   renderAddress(e.To),
	}}
}

// OfferCreated captures a posted (possibly buyer-restricted) sale offer.
type OfferCreated struct {
	ID         uint64
	Seller     [20]byte
	MinPrice   *big.Int
	Restricted bool
	Buyer      [20]byte
}

// EventType satisfies the Event interface.
func (OfferCreated) EventType() string { return TypeOfferCreated }

// Event converts the structured payload into a broadcastable event.
func (e OfferCreated) Event() *types.Event {
	attrs := map[string]string{
		"id":       strconv.FormatUint(e.ID, 10),
		"seller":   renderAddress(e.Seller),
		"minPrice": formatAmount(e.MinPrice),
	}
	if e.Restricted {
		attrs["buyer"] = renderAddress(e.Buyer)
	}
	return &types.Event{Type: TypeOfferCreated, Attributes: attrs}
}

// SaleSettled captures a completed marketplace purchase.
type SaleSettled struct {
	ID          uint64
	Seller      [20]byte
	Buyer       [20]byte
	Paid        *big.Int
	PlatformFee *big.Int
}

// EventType satisfies the Event interface.
func (SaleSettled) EventType() string { return TypeSaleSettled }

// Event converts the structured payload into a broadcastable event.
func (e SaleSettled) Event() *types.Event {
	return &types.Event{Type: TypeSaleSettled, Attributes: map[string]string{
		"id":          strconv.FormatUint(e.ID, 10),
		"seller":      renderAddress(e.Seller),
		"buyer":       renderAddress(e.Buyer),
		"paid":        formatAmount(e.Paid),
		"platformFee": formatAmount(e.PlatformFee),
	}}
}

// MintAuthorityChanged records reassignment of the minting authority.
type MintAuthorityChanged struct {
	Previous [20]byte
	Current  [20]byte
}

// EventType satisfies the Event interface.
func (MintAuthorityChanged) EventType() string { return TypeMintAuthorityChanged }

// Event converts the structured payload into a broadcastable event.
func (e MintAuthorityChanged) Event() *types.Event {
	attrs := map[string]string{"current": renderAddress(e.Current)}
	if !zeroAddress(e.Previous) {
		attrs["previous"] = renderAddress(e.Previous)
	}
	return &types.Event{Type: TypeMintAuthorityChanged, Attributes: attrs}
}

// CollectibleClaimed captures a staker exercising their one claim.
type CollectibleClaimed struct {
	ID      uint64
	Claimer [20]byte
}

// EventType satisfies the Event interface.
func (CollectibleClaimed) EventType() string { return TypeCollectibleClaimed }

// Event converts the structured payload into a broadcastable event.
func (e CollectibleClaimed) Event() *types.Event {
	return &types.Event{Type: TypeCollectibleClaimed, Attributes: map[string]string{
		"id":      strconv.FormatUint(e.ID, 10),
		"claimer": renderAddress(e.Claimer),
	}}
}

// CollectiblePurchased captures a fixed-price mint bypassing the stake gate.
type CollectiblePurchased struct {
	ID          uint64
	Buyer       [20]byte
	Paid        *big.Int
	Beneficiary [20]byte
}

// EventType satisfies the Event interface.
func (CollectiblePurchased) EventType() string { return TypeCollectiblePurchased }

// Event converts the structured payload into a broadcastable event.
func (e CollectiblePurchased) Event() *types.Event {
	return &types.Event{Type: TypeCollectiblePurchased, Attributes: map[string]string{
		"id":          strconv.FormatUint(e.ID, 10),
		"buyer":       renderAddress(e.Buyer),
		"paid":        formatAmount(e.Paid),
		"beneficiary": renderAddress(e.Beneficiary),
	}}
}
