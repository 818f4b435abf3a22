package market

import (
	"strconv"

	"stakedrop/core/events"
	"stakedrop/core/types"
)

// engineState is the narrow persistence surface the collectible engine needs
// from the surrounding state implementation.
type engineState interface {
	CollectibleRegistry() (*Registry, error)
	PutCollectibleRegistry(reg *Registry) error
	CollectibleOwner(id uint64) ([20]byte, bool, error)
	SetCollectibleOwner(id uint64, owner [20]byte) error
	OwnerCollectibles(addr [20]byte) ([]uint64, error)
	PutOwnerCollectibles(addr [20]byte, ids []uint64) error
	CollectibleOffer(id uint64) (*Offer, bool, error)
	PutCollectibleOffer(id uint64, offer *Offer) error
	ClearCollectibleOffer(id uint64) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// Engine owns the bounded-supply collectible registry and its embedded sale
// marketplace. Ids are assigned sequentially and never reused; each id has
// exactly one owner and at most one active offer.
type Engine struct {
	state   engineState
	emitter events.Emitter

	supplyCap      uint64
	baseTokenURL   string
	tokenURLSuffix string

	platform       [20]byte
	platformFeeBps uint64
}

// NewEngine constructs a collectible engine with a fixed supply cap.
func NewEngine(supplyCap uint64) *Engine {
	return &Engine{
		supplyCap: supplyCap,
		emitter:   events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetTokenURL configures the per-id resource path pieces.
func (e *Engine) SetTokenURL(base, suffix string) {
	e.baseTokenURL = base
	e.tokenURLSuffix = suffix
}

// SetPlatformFee configures the settlement fee split.
func (e *Engine) SetPlatformFee(platform [20]byte, feeBps uint64) error {
	if feeBps > feeDenominator {
		return ErrBadFeeSplit
	}
	e.platform = platform
	e.platformFeeBps = feeBps
	return nil
}

// SupplyCap returns the fixed maximum number of mintable ids.
func (e *Engine) SupplyCap() uint64 { return e.supplyCap }

func (e *Engine) emit(evt events.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

// --- minting ---

// CreateNewFor mints the next sequential id to the owner. Only the current
// minting authority may call.
func (e *Engine) CreateNewFor(caller, owner [20]byte) (uint64, error) {
	if e.state == nil {
		return 0, ErrNilState
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return 0, err
	}
	id := reg.Minted
	if err := e.mint(reg, caller, owner, id); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateNewForID mints an explicitly chosen id to the owner. The id must be
// the next sequential slot; minting out of order or reusing an id fails.
func (e *Engine) CreateNewForID(caller, owner [20]byte, id uint64) error {
	if e.state == nil {
		return ErrNilState
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return err
	}
	if id != reg.Minted {
		return ErrBadTokenID
	}
	return e.mint(reg, caller, owner, id)
}

func (e *Engine) mint(reg *Registry, caller, owner [20]byte, id uint64) error {
	if reg.Authority != caller || caller == ([20]byte{}) {
		return ErrUnauthorized
	}
	if reg.Minted >= e.supplyCap {
		return ErrSupplyCapExceeded
	}
	owned, err := e.state.OwnerCollectibles(owner)
	if err != nil {
		return err
	}
	reg.Minted++
	if err := e.state.SetCollectibleOwner(id, owner); err != nil {
		return err
	}
	if err := e.state.PutOwnerCollectibles(owner, append(owned, id)); err != nil {
		return err
	}
	if err := e.state.PutCollectibleRegistry(reg); err != nil {
		return err
	}
	e.emit(events.CollectibleMinted{ID: id, Owner: owner, Minted: reg.Minted})
	return nil
}

// TransferMintAuthority hands the minting authority to another principal,
// typically the staking module address so claims gate behind staking.
func (e *Engine) TransferMintAuthority(caller, next [20]byte) error {
	if e.state == nil {
		return ErrNilState
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return err
	}
	if reg.Authority != caller || caller == ([20]byte{}) {
		return ErrUnauthorized
	}
	previous := reg.Authority
	reg.Authority = next
	if err := e.state.PutCollectibleRegistry(reg); err != nil {
		return err
	}
	e.emit(events.MintAuthorityChanged{Previous: previous, Current: next})
	return nil
}

// --- ownership ---

// Transfer moves a collectible between owners and clears any active offer on
// the id, so stale offers can never settle after the owner changed.
func (e *Engine) Transfer(caller, to [20]byte, id uint64) error {
	if e.state == nil {
		return ErrNilState
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
	if err := e.moveOwnership(id, owner, to); err != nil {
		return err
	}
	e.emit(events.CollectibleTransferred{ID: id, From: owner, To: to})
	return nil
}

// moveOwnership clears the id's offer and rewrites owner state and the
// per-owner indexes. Offer clearing happens first: a transfer invalidates any
// standing sale terms.
func (e *Engine) moveOwnership(id uint64, from, to [20]byte) error {
	if err := e.state.ClearCollectibleOffer(id); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	fromOwned, err := e.state.OwnerCollectibles(from)
	if err != nil {
		return err
	}
	toOwned, err := e.state.OwnerCollectibles(to)
	if err != nil {
		return err
	}
	kept := fromOwned[:0]
	for _, owned := range fromOwned {
		if owned != id {
			kept = append(kept, owned)
		}
	}
	if err := e.state.SetCollectibleOwner(id, to); err != nil {
		return err
	}
	if err := e.state.PutOwnerCollectibles(from, kept); err != nil {
		return err
	}
	return e.state.PutOwnerCollectibles(to, append(toOwned, id))
}

// --- queries ---

// OwnerOf reports the current owner of a minted id.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	if e.state == nil {
		return [20]byte{}, ErrNilState
	}
	owner, ok, err := e.state.CollectibleOwner(id)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrUnknownToken
	}
	return owner, nil
}

// BalanceOf reports how many collectibles an account owns.
func (e *Engine) BalanceOf(addr [20]byte) (uint64, error) {
	ids, err := e.TokensOf(addr)
	if err != nil {
		return 0, err
	}
	return uint64(len(ids)), nil
}

// TokensOf lists the ids owned by an account in mint-then-acquire order.
func (e *Engine) TokensOf(addr [20]byte) ([]uint64, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	return e.state.OwnerCollectibles(addr)
}

// MintedCount reports how many ids exist.
func (e *Engine) MintedCount() (uint64, error) {
	if e.state == nil {
		return 0, ErrNilState
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return 0, err
	}
	return reg.Minted, nil
}

// MintAuthority reports the principal currently allowed to mint.
func (e *Engine) MintAuthority() ([20]byte, error) {
	if e.state == nil {
		return [20]byte{}, ErrNilState
	}
	reg, err := e.state.CollectibleRegistry()
	if err != nil {
		return [20]byte{}, err
	}
	return reg.Authority, nil
}

// TokenURL derives the resource identifier for an id within the supply cap.
// Pure with respect to registry state.
func (e *Engine) TokenURL(id uint64) (string, error) {
	if id >= e.supplyCap {
		return "", ErrBadTokenID
	}
	return e.baseTokenURL + strconv.FormatUint(id, 10) + e.tokenURLSuffix, nil
}
