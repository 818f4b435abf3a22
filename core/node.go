package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakedrop/core/state"
	"stakedrop/core/types"
	"stakedrop/native/market"
	"stakedrop/native/stake"
	"stakedrop/observability/metrics"
)

// StakeModuleAddress derives the treasury address holding pooled stake and
// reward balances. Deterministic so genesis documents can reference it.
func StakeModuleAddress() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("stakedrop/native/stake/module"))[12:])
	return addr
}

// NodeConfig carries the resolved engine parameters, already parsed and
// validated by the config package.
type NodeConfig struct {
	ClaimPolicy            stake.Policy
	RewardsDuration        uint64
	LockDuration           uint64
	CollectiblePrice       *big.Int
	CollectibleBeneficiary [20]byte

	SupplyCap      uint64
	BaseTokenURL   string
	TokenURLSuffix string
	Platform       [20]byte
	PlatformFeeBps uint64
}

// Node owns the state manager and both module engines and serializes every
// state transition behind a single mutex, so each operation observes and
// produces a consistent ledger.
type Node struct {
	mu sync.Mutex

	log      *slog.Logger
	state    *state.Manager
	stake    *stake.Engine
	market   *market.Engine
	recorder *eventRecorder

	platformFeeBps uint64
}

// NewNode wires the engines to persistent state, applies genesis allocations
// on first boot, and anchors the lock window to the recorded start time.
func NewNode(mgr *state.Manager, genesis *Genesis, cfg NodeConfig, logger *slog.Logger) (*Node, error) {
	if mgr == nil {
		return nil, fmt.Errorf("node: nil state manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	moduleAddr := StakeModuleAddress()
	recorder := newEventRecorder(logger.With("component", "events"))

	marketEngine := market.NewEngine(cfg.SupplyCap)
	marketEngine.SetState(mgr)
	marketEngine.SetEmitter(recorder)
	marketEngine.SetTokenURL(cfg.BaseTokenURL, cfg.TokenURLSuffix)
	if err := marketEngine.SetPlatformFee(cfg.Platform, cfg.PlatformFeeBps); err != nil {
		return nil, err
	}

	stakeEngine := stake.NewEngine(moduleAddr, cfg.ClaimPolicy)
	stakeEngine.SetState(mgr)
	stakeEngine.SetEmitter(recorder)
	stakeEngine.SetMinter(marketEngine)
	stakeEngine.SetRewardsDuration(cfg.RewardsDuration)
	stakeEngine.SetCollectiblePrice(cfg.CollectiblePrice, cfg.CollectibleBeneficiary)

	node := &Node{
		log:            logger.With("component", "node"),
		state:          mgr,
		stake:          stakeEngine,
		market:         marketEngine,
		recorder:       recorder,
		platformFeeBps: cfg.PlatformFeeBps,
	}
	if genesis != nil {
		if err := genesis.apply(mgr, moduleAddr); err != nil {
			return nil, err
		}
	}
	start, err := mgr.StakeStartTime()
	if err != nil {
		return nil, err
	}
	if start == 0 {
		start = nowUnix()
		if err := mgr.SetStakeStartTime(start); err != nil {
			return nil, err
		}
	}
	stakeEngine.SetLockWindow(start, cfg.LockDuration)
	node.log.Info("node initialized",
		"policy", string(cfg.ClaimPolicy),
		"startTime", start,
		"supplyCap", cfg.SupplyCap,
	)
	return node, nil
}

// timeNow is swapped out by tests that pin the boot clock.
var timeNow = time.Now

func nowUnix() uint64 {
	ts := timeNow().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// StakeEngine exposes the staking engine for tests that need the clock hook.
func (n *Node) StakeEngine() *stake.Engine { return n.stake }

// --- staking transitions ---

// Stake deposits the caller's pool tokens into their own position.
func (n *Node) Stake(caller [20]byte, amount *big.Int) (*stake.Position, error) {
	return n.StakeFor(caller, caller, amount)
}

// StakeFor pulls pool tokens from the funder and credits the beneficiary.
func (n *Node) StakeFor(funder, beneficiary [20]byte, amount *big.Int) (*stake.Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pos, err := n.stake.StakeFor(funder, beneficiary, amount)
	if err != nil {
		return nil, err
	}
	metrics.Stake().ObserveDeposit()
	n.observeTotalStakedLocked()
	return pos, nil
}

// Withdraw returns staked pool tokens to the caller.
func (n *Node) Withdraw(caller [20]byte, amount *big.Int) (*stake.Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pos, err := n.stake.Withdraw(caller, amount)
	if err != nil {
		return nil, err
	}
	metrics.Stake().ObserveWithdrawal()
	n.observeTotalStakedLocked()
	return pos, nil
}

// GetReward settles the caller's banked rewards.
func (n *Node) GetReward(caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	paid, err := n.stake.GetReward(caller)
	if err != nil {
		return nil, err
	}
	metrics.Stake().ObserveRewardPaid(paid)
	return paid, nil
}

// Exit withdraws the caller's full position and settles rewards atomically.
func (n *Node) Exit(caller [20]byte) (*big.Int, *big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	withdrawn, paid, err := n.stake.Exit(caller)
	if err != nil {
		return nil, nil, err
	}
	metrics.Stake().ObserveWithdrawal()
	metrics.Stake().ObserveRewardPaid(paid)
	n.observeTotalStakedLocked()
	return withdrawn, paid, nil
}

// NotifyRewardAmount starts or tops up a reward period. Distributor only.
func (n *Node) NotifyRewardAmount(caller [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.stake.NotifyRewardAmount(caller, amount); err != nil {
		return err
	}
	metrics.Stake().ObserveRewardFunded(amount)
	return nil
}

// SetRewardsDistribution reassigns the distributor role. Owner only.
func (n *Node) SetRewardsDistribution(caller, distributor [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.SetRewardsDistribution(caller, distributor)
}

// RescueRewards sweeps unowed reward balance to the distributor.
func (n *Node) RescueRewards(caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	swept, err := n.stake.RescueRewards(caller)
	if err != nil {
		return nil, err
	}
	metrics.Stake().ObserveRescue(swept)
	return swept, nil
}

// ClaimCollectible mints the staker's one-shot collectible claim.
func (n *Node) ClaimCollectible(caller [20]byte, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.stake.ClaimNFT(caller, id); err != nil {
		return err
	}
	n.observeMintedLocked()
	return nil
}

// BuyCollectible mints a collectible at the fixed direct price.
func (n *Node) BuyCollectible(caller [20]byte, id uint64, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.stake.BuyNFT(caller, id, value); err != nil {
		return err
	}
	n.observeMintedLocked()
	return nil
}

// --- staking queries ---

// Earned reports an account's banked plus pending rewards.
func (n *Node) Earned(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.Earned(addr)
}

// EarnedByShare projects accrual for a hypothetical share size.
func (n *Node) EarnedByShare(amount *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.EarnedByShare(amount)
}

// RewardPerToken reports the current accumulator projection.
func (n *Node) RewardPerToken() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.RewardPerToken()
}

// StakeBalanceOf reports an account's staked balance.
func (n *Node) StakeBalanceOf(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.BalanceOf(addr)
}

// TotalStaked reports the pool-wide staked supply.
func (n *Node) TotalStaked() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stake.TotalStaked()
}

// StakeRoles reports the staking authorization table.
func (n *Node) StakeRoles() (*stake.Roles, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.StakeRoles()
}

// --- collectible transitions ---

// CreateCollectible mints the next sequential id to the owner. Authority only.
func (n *Node) CreateCollectible(caller, owner [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.market.CreateNewFor(caller, owner)
	if err != nil {
		return 0, err
	}
	n.observeMintedLocked()
	return id, nil
}

// TransferCollectible moves an id between owners, clearing any offer.
func (n *Node) TransferCollectible(caller, to [20]byte, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Transfer(caller, to, id)
}

// TransferMintAuthority hands the minting authority to another principal.
func (n *Node) TransferMintAuthority(caller, next [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.TransferMintAuthority(caller, next)
}

// OfferForSale posts an open sale offer on an id.
func (n *Node) OfferForSale(caller [20]byte, id uint64, minPrice *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.market.OfferForSale(caller, id, minPrice); err != nil {
		return err
	}
	metrics.Market().ObserveOffer()
	return nil
}

// OfferForSaleToAddress posts an offer only the named buyer may settle.
func (n *Node) OfferForSaleToAddress(caller [20]byte, id uint64, minPrice *big.Int, buyer [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.market.OfferForSaleToAddress(caller, id, minPrice, buyer); err != nil {
		return err
	}
	metrics.Market().ObserveOffer()
	return nil
}

// BuyOffer settles the active offer on an id with the caller's payment.
func (n *Node) BuyOffer(caller [20]byte, id uint64, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.market.Buy(caller, id, value); err != nil {
		return err
	}
	fee := new(big.Int).Mul(value, new(big.Int).SetUint64(n.platformFeeBps))
	fee.Quo(fee, big.NewInt(10_000))
	metrics.Market().ObserveSale(fee)
	return nil
}

// --- collectible queries ---

// OwnerOf reports the current owner of a minted id.
func (n *Node) OwnerOf(id uint64) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.OwnerOf(id)
}

// CollectibleBalance reports how many ids an account owns.
func (n *Node) CollectibleBalance(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.BalanceOf(addr)
}

// CollectiblesOf lists the ids owned by an account.
func (n *Node) CollectiblesOf(addr [20]byte) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.TokensOf(addr)
}

// MintedCount reports how many ids exist.
func (n *Node) MintedCount() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.MintedCount()
}

// MintAuthority reports the principal currently allowed to mint.
func (n *Node) MintAuthority() ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.MintAuthority()
}

// TokenURL derives the resource identifier for an id.
func (n *Node) TokenURL(id uint64) (string, error) {
	return n.market.TokenURL(id)
}

// OfferFor returns the active offer on an id, if any.
func (n *Node) OfferFor(id uint64) (*market.Offer, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.OfferFor(id)
}

// --- accounts and events ---

// Account returns the balances and nonce stored for an address.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(addr)
}

// RecentEvents returns up to limit of the most recent module events.
func (n *Node) RecentEvents(limit int) []*types.Event {
	return n.recorder.Recent(limit)
}

func (n *Node) observeTotalStakedLocked() {
	total, err := n.stake.TotalStaked()
	if err != nil {
		return
	}
	metrics.Stake().ObserveTotalStaked(total)
}

func (n *Node) observeMintedLocked() {
	count, err := n.market.MintedCount()
	if err != nil {
		return
	}
	metrics.Market().ObserveMinted(count)
}
