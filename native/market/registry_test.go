package market

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"stakedrop/core/types"
)

// mockState is an in-memory engineState mirroring the copy-on-read and
// copy-on-write behavior of the real state manager.
type mockState struct {
	registry *Registry
	owners   map[uint64][20]byte
	indexes  map[[20]byte][]uint64
	offers   map[uint64]*Offer
	accounts map[[20]byte]*types.Account
}

func newMockState(authority [20]byte) *mockState {
	return &mockState{
		registry: &Registry{Authority: authority},
		owners:   make(map[uint64][20]byte),
		indexes:  make(map[[20]byte][]uint64),
		offers:   make(map[uint64]*Offer),
		accounts: make(map[[20]byte]*types.Account),
	}
}

func (m *mockState) CollectibleRegistry() (*Registry, error) {
	copied := *m.registry
	return &copied, nil
}

func (m *mockState) PutCollectibleRegistry(reg *Registry) error {
	copied := *reg
	m.registry = &copied
	return nil
}

func (m *mockState) CollectibleOwner(id uint64) ([20]byte, bool, error) {
	owner, ok := m.owners[id]
	return owner, ok, nil
}

func (m *mockState) SetCollectibleOwner(id uint64, owner [20]byte) error {
	m.owners[id] = owner
	return nil
}

func (m *mockState) OwnerCollectibles(addr [20]byte) ([]uint64, error) {
	ids := m.indexes[addr]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

func (m *mockState) PutOwnerCollectibles(addr [20]byte, ids []uint64) error {
	if len(ids) == 0 {
		delete(m.indexes, addr)
		return nil
	}
	out := make([]uint64, len(ids))
	copy(out, ids)
	m.indexes[addr] = out
	return nil
}

func (m *mockState) CollectibleOffer(id uint64) (*Offer, bool, error) {
	offer, ok := m.offers[id]
	if !ok {
		return nil, false, nil
	}
	offer.EnsureDefaults()
	copied := &Offer{
		MinPrice:   new(big.Int).Set(offer.MinPrice),
		Restricted: offer.Restricted,
		Buyer:      offer.Buyer,
	}
	return copied, true, nil
}

func (m *mockState) PutCollectibleOffer(id uint64, offer *Offer) error {
	offer.EnsureDefaults()
	m.offers[id] = &Offer{
		MinPrice:   new(big.Int).Set(offer.MinPrice),
		Restricted: offer.Restricted,
		Buyer:      offer.Buyer,
	}
	return nil
}

func (m *mockState) ClearCollectibleOffer(id uint64) error {
	delete(m.offers, id)
	return nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	if acc, ok := m.accounts[addr]; ok {
		acc.EnsureDefaults()
		return &types.Account{
			Nonce:         acc.Nonce,
			BalanceNative: new(big.Int).Set(acc.BalanceNative),
			BalanceRWD:    new(big.Int).Set(acc.BalanceRWD),
			BalanceLP:     new(big.Int).Set(acc.BalanceLP),
		}, nil
	}
	return (&types.Account{}).EnsureDefaults(), nil
}

func (m *mockState) PutAccount(addr [20]byte, acc *types.Account) error {
	acc.EnsureDefaults()
	m.accounts[addr] = &types.Account{
		Nonce:         acc.Nonce,
		BalanceNative: new(big.Int).Set(acc.BalanceNative),
		BalanceRWD:    new(big.Int).Set(acc.BalanceRWD),
		BalanceLP:     new(big.Int).Set(acc.BalanceLP),
	}
	return nil
}

func (m *mockState) setNative(addr [20]byte, amount int64) {
	acc := (&types.Account{}).EnsureDefaults()
	acc.BalanceNative = big.NewInt(amount)
	m.accounts[addr] = acc
}

func (m *mockState) native(addr [20]byte) *big.Int {
	if acc, ok := m.accounts[addr]; ok {
		return acc.EnsureDefaults().BalanceNative
	}
	return big.NewInt(0)
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

var (
	authority = addr(1)
	holder    = addr(2)
	other     = addr(3)
	platform  = addr(9)
)

func newTestEngine(t *testing.T, cap uint64) (*Engine, *mockState) {
	t.Helper()
	state := newMockState(authority)
	engine := NewEngine(cap)
	engine.SetState(state)
	engine.SetTokenURL("https://img.example.org/", ".json")
	require.NoError(t, engine.SetPlatformFee(platform, 250))
	return engine, state
}

func TestMintSequentialIDs(t *testing.T) {
	engine, state := newTestEngine(t, 10)

	first, err := engine.CreateNewFor(authority, holder)
	require.NoError(t, err)
	require.Equal(t, uint64(0), first)

	second, err := engine.CreateNewFor(authority, other)
	require.NoError(t, err)
	require.Equal(t, uint64(1), second)

	require.Equal(t, uint64(2), state.registry.Minted)
	owner, err := engine.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, holder, owner)
}

func TestMintAuthorityOnly(t *testing.T) {
	engine, _ := newTestEngine(t, 10)

	_, err := engine.CreateNewFor(other, holder)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = engine.CreateNewFor([20]byte{}, holder)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestMintRespectsSupplyCap(t *testing.T) {
	engine, _ := newTestEngine(t, 2)

	_, err := engine.CreateNewFor(authority, holder)
	require.NoError(t, err)
	_, err = engine.CreateNewFor(authority, holder)
	require.NoError(t, err)
	_, err = engine.CreateNewFor(authority, holder)
	require.ErrorIs(t, err, ErrSupplyCapExceeded)

	count, err := engine.MintedCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestMintExplicitIDMustBeNextSlot(t *testing.T) {
	engine, _ := newTestEngine(t, 10)

	require.NoError(t, engine.CreateNewForID(authority, holder, 0))
	require.ErrorIs(t, engine.CreateNewForID(authority, holder, 0), ErrBadTokenID)
	require.ErrorIs(t, engine.CreateNewForID(authority, holder, 5), ErrBadTokenID)
	require.NoError(t, engine.CreateNewForID(authority, holder, 1))
}

func TestTransferMintAuthority(t *testing.T) {
	engine, _ := newTestEngine(t, 10)

	require.ErrorIs(t, engine.TransferMintAuthority(other, other), ErrUnauthorized)
	require.NoError(t, engine.TransferMintAuthority(authority, other))

	current, err := engine.MintAuthority()
	require.NoError(t, err)
	require.Equal(t, other, current)

	_, err = engine.CreateNewFor(authority, holder)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = engine.CreateNewFor(other, holder)
	require.NoError(t, err)
}

func TestTransferUpdatesIndexes(t *testing.T) {
	engine, _ := newTestEngine(t, 10)
	_, err := engine.CreateNewFor(authority, holder)
	require.NoError(t, err)
	_, err = engine.CreateNewFor(authority, holder)
	require.NoError(t, err)

	require.ErrorIs(t, engine.Transfer(other, other, 0), ErrUnauthorized)
	require.ErrorIs(t, engine.Transfer(holder, other, 7), ErrUnknownToken)

	require.NoError(t, engine.Transfer(holder, other, 0))

	holderTokens, err := engine.TokensOf(holder)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, holderTokens)
	otherTokens, err := engine.TokensOf(other)
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, otherTokens)

	holderCount, err := engine.BalanceOf(holder)
	require.NoError(t, err)
	require.Equal(t, uint64(1), holderCount)
}

func TestTransferClearsOffer(t *testing.T) {
	engine, _ := newTestEngine(t, 1)
	_, err := engine.CreateNewFor(authority, holder)
	require.NoError(t, err)
	require.NoError(t, engine.OfferForSale(holder, 0, big.NewInt(100)))

	require.NoError(t, engine.Transfer(holder, other, 0))

	_, active, err := engine.OfferFor(0)
	require.NoError(t, err)
	require.False(t, active, "a transfer invalidates standing sale terms")
}

func TestTokenURL(t *testing.T) {
	engine, _ := newTestEngine(t, 100)

	url, err := engine.TokenURL(42)
	require.NoError(t, err)
	require.Equal(t, "https://img.example.org/42.json", url)

	_, err = engine.TokenURL(100)
	require.ErrorIs(t, err, ErrBadTokenID)
}

func TestSetPlatformFeeBounds(t *testing.T) {
	engine := NewEngine(10)
	require.ErrorIs(t, engine.SetPlatformFee(platform, 10_001), ErrBadFeeSplit)
	require.NoError(t, engine.SetPlatformFee(platform, 10_000))
}
