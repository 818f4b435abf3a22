package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"stakedrop/core/types"
	"stakedrop/native/market"
	"stakedrop/native/stake"
	"stakedrop/storage"
)

var (
	accountPrefix       = []byte("acct:")
	positionPrefix      = []byte("stake:pos:")
	claimedPrefix       = []byte("stake:claimed:")
	tokenOwnerPrefix    = []byte("market:token:")
	tokenOfferPrefix    = []byte("market:offer:")
	ownerIndexPrefix    = []byte("market:owned:")
	stakeLedgerKey      = ethcrypto.Keccak256([]byte("stake:ledger"))
	stakeStartKey       = ethcrypto.Keccak256([]byte("stake:start"))
	stakeRolesKey       = ethcrypto.Keccak256([]byte("stake:roles"))
	marketRegistryKey   = ethcrypto.Keccak256([]byte("market:registry"))
	genesisAppliedKey   = ethcrypto.Keccak256([]byte("genesis:applied"))
	errBalanceOverflow  = errors.New("state: balance overflow")
	errAggregateNonNeg  = errors.New("state: negative ledger aggregate")
	claimedMarker       = []byte{1}
)

// Manager persists every module record as an RLP blob under a keccak-derived
// key in the backing key-value store. It implements the narrow state
// interfaces consumed by the staking and market engines.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(suffix))
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return ethcrypto.Keccak256(buf)
}

func idSuffix(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func (m *Manager) load(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode: %w", err)
	}
	return true, nil
}

func (m *Manager) store(key []byte, record interface{}) error {
	raw, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	return m.db.Put(key, raw)
}

// --- accounts ---

type storedAccount struct {
	Nonce         uint64
	BalanceNative *big.Int
	BalanceRWD    *big.Int
	BalanceLP     *big.Int
}

// GetAccount reconstructs the account stored under the address, returning a
// zeroed record when none exists yet.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.load(prefixedKey(accountPrefix, addr[:]), &stored)
	if err != nil {
		return nil, err
	}
	account := &types.Account{}
	if ok {
		account.Nonce = stored.Nonce
		account.BalanceNative = stored.BalanceNative
		account.BalanceRWD = stored.BalanceRWD
		account.BalanceLP = stored.BalanceLP
	}
	return account.EnsureDefaults(), nil
}

// PutAccount persists the account, rejecting balances outside 256 bits.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	account.EnsureDefaults()
	for _, balance := range []*big.Int{account.BalanceNative, account.BalanceRWD, account.BalanceLP} {
		if balance.Sign() < 0 {
			return errBalanceOverflow
		}
		if _, overflow := uint256.FromBig(balance); overflow {
			return errBalanceOverflow
		}
	}
	stored := storedAccount{
		Nonce:         account.Nonce,
		BalanceNative: account.BalanceNative,
		BalanceRWD:    account.BalanceRWD,
		BalanceLP:     account.BalanceLP,
	}
	return m.store(prefixedKey(accountPrefix, addr[:]), &stored)
}

// --- staking ---

type storedPosition struct {
	Balance            *big.Int
	RewardPerTokenPaid *big.Int
	RewardsAccrued     *big.Int
}

// StakePosition loads the checkpointed position for an address, zeroed when
// the account has never staked.
func (m *Manager) StakePosition(addr [20]byte) (*stake.Position, error) {
	var stored storedPosition
	ok, err := m.load(prefixedKey(positionPrefix, addr[:]), &stored)
	if err != nil {
		return nil, err
	}
	pos := &stake.Position{}
	if ok {
		pos.Balance = stored.Balance
		pos.RewardPerTokenPaid = stored.RewardPerTokenPaid
		pos.RewardsAccrued = stored.RewardsAccrued
	}
	return pos.EnsureDefaults(), nil
}

// PutStakePosition persists a position record.
func (m *Manager) PutStakePosition(addr [20]byte, pos *stake.Position) error {
	if pos == nil {
		return fmt.Errorf("state: nil position")
	}
	pos.EnsureDefaults()
	stored := storedPosition{
		Balance:            pos.Balance,
		RewardPerTokenPaid: pos.RewardPerTokenPaid,
		RewardsAccrued:     pos.RewardsAccrued,
	}
	return m.store(prefixedKey(positionPrefix, addr[:]), &stored)
}

type storedLedger struct {
	RewardRate           *big.Int
	RewardPerTokenStored *big.Int
	LastUpdateTime       uint64
	PeriodFinish         uint64
	TotalStaked          *big.Int
	BankedTotal          *big.Int
	PaidWeighted         *big.Int
}

// StakeLedger loads the singleton reward-accounting ledger.
func (m *Manager) StakeLedger() (*stake.Ledger, error) {
	var stored storedLedger
	ok, err := m.load(stakeLedgerKey, &stored)
	if err != nil {
		return nil, err
	}
	ledger := &stake.Ledger{}
	if ok {
		ledger.RewardRate = stored.RewardRate
		ledger.RewardPerTokenStored = stored.RewardPerTokenStored
		ledger.LastUpdateTime = stored.LastUpdateTime
		ledger.PeriodFinish = stored.PeriodFinish
		ledger.TotalStaked = stored.TotalStaked
		ledger.BankedTotal = stored.BankedTotal
		ledger.PaidWeighted = stored.PaidWeighted
	}
	return ledger.EnsureDefaults(), nil
}

// PutStakeLedger persists the ledger. RLP cannot carry negative integers, so
// a negative aggregate here means corrupted accounting and is refused.
func (m *Manager) PutStakeLedger(ledger *stake.Ledger) error {
	if ledger == nil {
		return fmt.Errorf("state: nil ledger")
	}
	ledger.EnsureDefaults()
	for _, v := range []*big.Int{ledger.RewardRate, ledger.RewardPerTokenStored, ledger.TotalStaked, ledger.BankedTotal, ledger.PaidWeighted} {
		if v.Sign() < 0 {
			return errAggregateNonNeg
		}
	}
	stored := storedLedger{
		RewardRate:           ledger.RewardRate,
		RewardPerTokenStored: ledger.RewardPerTokenStored,
		LastUpdateTime:       ledger.LastUpdateTime,
		PeriodFinish:         ledger.PeriodFinish,
		TotalStaked:          ledger.TotalStaked,
		BankedTotal:          ledger.BankedTotal,
		PaidWeighted:         ledger.PaidWeighted,
	}
	return m.store(stakeLedgerKey, &stored)
}

type storedRoles struct {
	Owner       []byte
	Distributor []byte
}

// StakeRoles loads the staking authorization table.
func (m *Manager) StakeRoles() (*stake.Roles, error) {
	var stored storedRoles
	ok, err := m.load(stakeRolesKey, &stored)
	if err != nil {
		return nil, err
	}
	roles := &stake.Roles{}
	if ok {
		copy(roles.Owner[:], stored.Owner)
		copy(roles.RewardsDistributor[:], stored.Distributor)
	}
	return roles, nil
}

// PutStakeRoles persists the staking authorization table.
func (m *Manager) PutStakeRoles(roles *stake.Roles) error {
	if roles == nil {
		return fmt.Errorf("state: nil roles")
	}
	stored := storedRoles{
		Owner:       roles.Owner[:],
		Distributor: roles.RewardsDistributor[:],
	}
	return m.store(stakeRolesKey, &stored)
}

// StakeStartTime reports the unix second the staking window opened, zero when
// the node has never booted.
func (m *Manager) StakeStartTime() (uint64, error) {
	var start uint64
	if _, err := m.load(stakeStartKey, &start); err != nil {
		return 0, err
	}
	return start, nil
}

// SetStakeStartTime records the opening of the staking window. Written once on
// first boot so lock windows survive restarts.
func (m *Manager) SetStakeStartTime(start uint64) error {
	return m.store(stakeStartKey, start)
}

// CollectibleClaimed reports whether the address already exercised its claim.
func (m *Manager) CollectibleClaimed(addr [20]byte) (bool, error) {
	return m.db.Has(prefixedKey(claimedPrefix, addr[:]))
}

// MarkCollectibleClaimed records the one-shot claim for the address.
func (m *Manager) MarkCollectibleClaimed(addr [20]byte) error {
	return m.db.Put(prefixedKey(claimedPrefix, addr[:]), claimedMarker)
}

// --- collectibles ---

type storedRegistry struct {
	Minted    uint64
	Authority []byte
}

// CollectibleRegistry loads the singleton registry record.
func (m *Manager) CollectibleRegistry() (*market.Registry, error) {
	var stored storedRegistry
	ok, err := m.load(marketRegistryKey, &stored)
	if err != nil {
		return nil, err
	}
	reg := &market.Registry{}
	if ok {
		reg.Minted = stored.Minted
		copy(reg.Authority[:], stored.Authority)
	}
	return reg, nil
}

// PutCollectibleRegistry persists the registry record.
func (m *Manager) PutCollectibleRegistry(reg *market.Registry) error {
	if reg == nil {
		return fmt.Errorf("state: nil registry")
	}
	stored := storedRegistry{
		Minted:    reg.Minted,
		Authority: reg.Authority[:],
	}
	return m.store(marketRegistryKey, &stored)
}

// CollectibleOwner reports the owner of a minted id.
func (m *Manager) CollectibleOwner(id uint64) ([20]byte, bool, error) {
	raw, err := m.db.Get(prefixedKey(tokenOwnerPrefix, idSuffix(id)))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return [20]byte{}, false, nil
	}
	if err != nil {
		return [20]byte{}, false, err
	}
	var owner [20]byte
	copy(owner[:], raw)
	return owner, true, nil
}

// SetCollectibleOwner records the owner of an id.
func (m *Manager) SetCollectibleOwner(id uint64, owner [20]byte) error {
	return m.db.Put(prefixedKey(tokenOwnerPrefix, idSuffix(id)), owner[:])
}

// OwnerCollectibles lists the ids held by an address.
func (m *Manager) OwnerCollectibles(addr [20]byte) ([]uint64, error) {
	var ids []uint64
	if _, err := m.load(prefixedKey(ownerIndexPrefix, addr[:]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// PutOwnerCollectibles rewrites the per-owner id index.
func (m *Manager) PutOwnerCollectibles(addr [20]byte, ids []uint64) error {
	key := prefixedKey(ownerIndexPrefix, addr[:])
	if len(ids) == 0 {
		return m.db.Delete(key)
	}
	return m.store(key, ids)
}

type storedOffer struct {
	MinPrice   *big.Int
	Restricted bool
	Buyer      []byte
}

// CollectibleOffer loads the active offer on an id, if any.
func (m *Manager) CollectibleOffer(id uint64) (*market.Offer, bool, error) {
	var stored storedOffer
	ok, err := m.load(prefixedKey(tokenOfferPrefix, idSuffix(id)), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	offer := &market.Offer{
		MinPrice:   stored.MinPrice,
		Restricted: stored.Restricted,
	}
	copy(offer.Buyer[:], stored.Buyer)
	return offer.EnsureDefaults(), true, nil
}

// PutCollectibleOffer persists an offer, replacing any prior one on the id.
func (m *Manager) PutCollectibleOffer(id uint64, offer *market.Offer) error {
	if offer == nil {
		return fmt.Errorf("state: nil offer")
	}
	offer.EnsureDefaults()
	stored := storedOffer{
		MinPrice:   offer.MinPrice,
		Restricted: offer.Restricted,
		Buyer:      offer.Buyer[:],
	}
	return m.store(prefixedKey(tokenOfferPrefix, idSuffix(id)), &stored)
}

// ClearCollectibleOffer removes the offer on an id, if any.
func (m *Manager) ClearCollectibleOffer(id uint64) error {
	return m.db.Delete(prefixedKey(tokenOfferPrefix, idSuffix(id)))
}

// --- genesis marker ---

// GenesisApplied reports whether initial allocations have been written.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.db.Has(genesisAppliedKey)
}

// MarkGenesisApplied records that initial allocations were written.
func (m *Manager) MarkGenesisApplied() error {
	return m.db.Put(genesisAppliedKey, claimedMarker)
}
