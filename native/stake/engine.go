package stake

import (
	"math/big"
	"time"

	"stakedrop/core/events"
	"stakedrop/core/types"
)

// engineState is the narrow persistence surface the staking engine needs from
// the surrounding state implementation.
type engineState interface {
	StakePosition(addr [20]byte) (*Position, error)
	PutStakePosition(addr [20]byte, pos *Position) error
	StakeLedger() (*Ledger, error)
	PutStakeLedger(ledger *Ledger) error
	StakeRoles() (*Roles, error)
	PutStakeRoles(roles *Roles) error
	CollectibleClaimed(addr [20]byte) (bool, error)
	MarkCollectibleClaimed(addr [20]byte) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// CollectibleMinter is the slice of the registry the staking module drives
// once minting authority has been handed to its module address.
type CollectibleMinter interface {
	CreateNewForID(caller, owner [20]byte, id uint64) error
}

// Engine owns the staked-balance ledger and the reward accounting checkpoints.
// Every mutating entry point checkpoints the target account before touching
// balances, and moves assets only after all ledger writes are staged.
type Engine struct {
	state   engineState
	emitter events.Emitter
	minter  CollectibleMinter

	moduleAddr      [20]byte
	policy          Policy
	startTime       uint64
	lockDuration    uint64
	rewardsDuration uint64

	nftPrice       *big.Int
	nftBeneficiary [20]byte

	nowFn func() int64
}

// NewEngine constructs a staking engine bound to its module treasury address.
func NewEngine(moduleAddr [20]byte, policy Policy) *Engine {
	return &Engine{
		moduleAddr: moduleAddr,
		policy:     policy,
		emitter:    events.NoopEmitter{},
		nftPrice:   big.NewInt(0),
		nowFn:      func() int64 { return time.Now().Unix() },
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

// SetMinter wires the collectible registry used by claim and direct purchase.
func (e *Engine) SetMinter(minter CollectibleMinter) { e.minter = minter }

// SetRewardsDuration configures the length of funded reward periods.
func (e *Engine) SetRewardsDuration(seconds uint64) { e.rewardsDuration = seconds }

// SetLockWindow configures the lock gate for the claim-after-lock policy.
func (e *Engine) SetLockWindow(startTime, lockDuration uint64) {
	e.startTime = startTime
	e.lockDuration = lockDuration
}

// SetCollectiblePrice configures the fixed direct-purchase price and the
// address the full payment is forwarded to.
func (e *Engine) SetCollectiblePrice(price *big.Int, beneficiary [20]byte) {
	if price == nil {
		price = big.NewInt(0)
	}
	e.nftPrice = new(big.Int).Set(price)
	e.nftBeneficiary = beneficiary
}

// SetNowFunc overrides the clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// ModuleAddress returns the treasury address holding pooled assets.
func (e *Engine) ModuleAddress() [20]byte { return e.moduleAddr }

// Policy returns the configured claim policy.
func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt events.Event) {
	if evt != nil {
		e.emitter.Emit(evt)
	}
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// --- queries ---

// RewardPerToken reports the current accumulator projection.
func (e *Engine) RewardPerToken() (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	return ledger.EnsureDefaults().RewardPerToken(e.now()), nil
}

// Earned reports the claimable reward banked plus pending for an account.
func (e *Engine) Earned(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	pos, err := e.state.StakePosition(addr)
	if err != nil {
		return nil, err
	}
	return ledger.EnsureDefaults().Earned(pos, e.now()), nil
}

// EarnedByShare projects accrual for a hypothetical share of the given size.
func (e *Engine) EarnedByShare(amount *big.Int) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	return ledger.EnsureDefaults().EarnedByShare(amount, e.now()), nil
}

// BalanceOf reports the staked balance of an account.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	pos, err := e.state.StakePosition(addr)
	if err != nil {
		return nil, err
	}
	return cloneAmount(pos.EnsureDefaults().Balance), nil
}

// TotalStaked reports the ledger-wide staked supply.
func (e *Engine) TotalStaked() (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	return cloneAmount(ledger.EnsureDefaults().TotalStaked), nil
}

// --- staking ---

// Stake deposits the caller's own pool tokens into their position.
func (e *Engine) Stake(caller [20]byte, amount *big.Int) (*Position, error) {
	return e.StakeFor(caller, caller, amount)
}

// StakeFor pulls pool tokens from the funder and credits the beneficiary's
// position. The beneficiary is checkpointed before the balance increase, so a
// deposit never rewrites accrual history.
func (e *Engine) StakeFor(funder, beneficiary [20]byte, amount *big.Int) (*Position, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	pos, err := e.state.StakePosition(beneficiary)
	if err != nil {
		return nil, err
	}
	ledger.Checkpoint(pos, e.now())

	funderAcc, err := e.state.GetAccount(funder)
	if err != nil {
		return nil, err
	}
	funderAcc.EnsureDefaults()
	if funderAcc.BalanceLP.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return nil, err
	}
	moduleAcc.EnsureDefaults()

	ledger.creditStake(pos, amount)
	funderAcc.BalanceLP.Sub(funderAcc.BalanceLP, amount)
	moduleAcc.BalanceLP.Add(moduleAcc.BalanceLP, amount)

	if err := e.persistStakeState(ledger, beneficiary, pos); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(funder, funderAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddr, moduleAcc); err != nil {
		return nil, err
	}
	e.emit(events.StakeDeposited{
		Funder:      funder,
		Beneficiary: beneficiary,
		Amount:      cloneAmount(amount),
		NewBalance:  cloneAmount(pos.Balance),
		TotalStaked: cloneAmount(ledger.TotalStaked),
	})
	return pos, nil
}

// Withdraw returns staked pool tokens to the caller without touching banked
// rewards.
func (e *Engine) Withdraw(caller [20]byte, amount *big.Int) (*Position, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	pos, err := e.state.StakePosition(caller)
	if err != nil {
		return nil, err
	}
	ledger.Checkpoint(pos, e.now())
	if pos.Balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := e.withdrawStaged(ledger, caller, pos, amount); err != nil {
		return nil, err
	}
	e.emit(events.StakeWithdrawn{
		Account:     caller,
		Amount:      cloneAmount(amount),
		NewBalance:  cloneAmount(pos.Balance),
		TotalStaked: cloneAmount(ledger.TotalStaked),
	})
	return pos, nil
}

// withdrawStaged mutates and persists a checkpointed withdrawal. The caller
// has already verified the position covers the amount.
func (e *Engine) withdrawStaged(ledger *Ledger, caller [20]byte, pos *Position, amount *big.Int) error {
	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return err
	}
	moduleAcc.EnsureDefaults()
	if moduleAcc.BalanceLP.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	callerAcc, err := e.state.GetAccount(caller)
	if err != nil {
		return err
	}
	callerAcc.EnsureDefaults()

	ledger.debitStake(pos, amount)
	moduleAcc.BalanceLP.Sub(moduleAcc.BalanceLP, amount)
	callerAcc.BalanceLP.Add(callerAcc.BalanceLP, amount)

	if err := e.persistStakeState(ledger, caller, pos); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.moduleAddr, moduleAcc); err != nil {
		return err
	}
	return e.state.PutAccount(caller, callerAcc)
}

// GetReward pays out the caller's banked rewards. Under the after-lock policy
// this entry point is disabled; rewards settle only through Exit.
func (e *Engine) GetReward(caller [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := e.canClaim(); err != nil {
		return nil, err
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	pos, err := e.state.StakePosition(caller)
	if err != nil {
		return nil, err
	}
	ledger.Checkpoint(pos, e.now())
	paid, err := e.payRewardStaged(ledger, caller, pos)
	if err != nil {
		return nil, err
	}
	if paid.Sign() > 0 {
		e.emit(events.RewardPaid{Account: caller, Amount: cloneAmount(paid)})
	}
	return paid, nil
}

// payRewardStaged zeroes the banked accrual of an already-checkpointed
// position, persists the ledger writes and then moves the reward tokens.
func (e *Engine) payRewardStaged(ledger *Ledger, caller [20]byte, pos *Position) (*big.Int, error) {
	paid := cloneAmount(pos.RewardsAccrued)
	if paid.Sign() == 0 {
		if err := e.persistStakeState(ledger, caller, pos); err != nil {
			return nil, err
		}
		return paid, nil
	}
	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return nil, err
	}
	moduleAcc.EnsureDefaults()
	if moduleAcc.BalanceRWD.Cmp(paid) < 0 {
		return nil, ErrInsufficientBalance
	}
	callerAcc, err := e.state.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	callerAcc.EnsureDefaults()

	pos.RewardsAccrued = big.NewInt(0)
	ledger.BankedTotal.Sub(ledger.BankedTotal, paid)
	moduleAcc.BalanceRWD.Sub(moduleAcc.BalanceRWD, paid)
	callerAcc.BalanceRWD.Add(callerAcc.BalanceRWD, paid)

	if err := e.persistStakeState(ledger, caller, pos); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddr, moduleAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	return paid, nil
}

// Exit withdraws the caller's entire position and settles banked rewards in
// one operation. Under the after-lock policy it is refused until the lock
// window has elapsed.
func (e *Engine) Exit(caller [20]byte) (*big.Int, *big.Int, error) {
	if e.state == nil {
		return nil, nil, ErrNilState
	}
	now := e.now()
	if err := e.canExit(now); err != nil {
		return nil, nil, err
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, nil, err
	}
	pos, err := e.state.StakePosition(caller)
	if err != nil {
		return nil, nil, err
	}
	ledger.Checkpoint(pos, now)
	withdrawn := cloneAmount(pos.Balance)
	if withdrawn.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	// Validate the reward leg before the withdrawal leg persists anything, so
	// the combined operation either fully applies or fully fails.
	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return nil, nil, err
	}
	if moduleAcc.EnsureDefaults().BalanceRWD.Cmp(pos.RewardsAccrued) < 0 {
		return nil, nil, ErrInsufficientBalance
	}
	if err := e.withdrawStaged(ledger, caller, pos, withdrawn); err != nil {
		return nil, nil, err
	}
	paid, err := e.payRewardStaged(ledger, caller, pos)
	if err != nil {
		return nil, nil, err
	}
	e.emit(events.StakeWithdrawn{
		Account:     caller,
		Amount:      cloneAmount(withdrawn),
		NewBalance:  cloneAmount(pos.Balance),
		TotalStaked: cloneAmount(ledger.TotalStaked),
	})
	if paid.Sign() > 0 {
		e.emit(events.RewardPaid{Account: caller, Amount: cloneAmount(paid)})
	}
	return withdrawn, paid, nil
}

func (e *Engine) persistStakeState(ledger *Ledger, addr [20]byte, pos *Position) error {
	if err := e.state.PutStakeLedger(ledger); err != nil {
		return err
	}
	return e.state.PutStakePosition(addr, pos)
}

// --- funding and roles ---

// NotifyRewardAmount starts or tops up a reward period. Distributor only. The
// amount must already sit in the module's reward balance; the ledger refuses
// rates the balance cannot cover.
func (e *Engine) NotifyRewardAmount(caller [20]byte, amount *big.Int) error {
	if e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := e.requireDistributor(caller); err != nil {
		return err
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return err
	}
	now := e.now()
	ledger.Checkpoint(nil, now)

	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return err
	}
	moduleAcc.EnsureDefaults()
	if err := ledger.NotifyRewardAmount(amount, e.rewardsDuration, now, moduleAcc.BalanceRWD); err != nil {
		return err
	}
	if err := e.state.PutStakeLedger(ledger); err != nil {
		return err
	}
	e.emit(events.RewardAdded{
		Amount:       cloneAmount(amount),
		RewardRate:   cloneAmount(ledger.RewardRate),
		PeriodFinish: ledger.PeriodFinish,
	})
	return nil
}

// SetRewardsDistribution reassigns the distributor role. Owner only.
func (e *Engine) SetRewardsDistribution(caller, distributor [20]byte) error {
	if e.state == nil {
		return ErrNilState
	}
	roles, err := e.state.StakeRoles()
	if err != nil {
		return err
	}
	if roles.Owner != caller {
		return ErrUnauthorized
	}
	previous := roles.RewardsDistributor
	roles.RewardsDistributor = distributor
	if err := e.state.PutStakeRoles(roles); err != nil {
		return err
	}
	e.emit(events.DistributionChanged{Previous: previous, Current: distributor})
	return nil
}

// RescueRewards sweeps reward balance in excess of the outstanding obligation
// to the distributor. Funds owed to stakers are never reachable: the sweep is
// bounded by the module balance minus the accrued obligation, and while a
// reward period is still running its remaining emission is reserved too, so a
// sweep can never break the solvency promise made at funding time.
func (e *Engine) RescueRewards(caller [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if err := e.requireDistributor(caller); err != nil {
		return nil, err
	}
	ledger, err := e.state.StakeLedger()
	if err != nil {
		return nil, err
	}
	now := e.now()
	ledger.Checkpoint(nil, now)
	owed := ledger.Owed()
	if now < ledger.PeriodFinish {
		remaining := new(big.Int).SetUint64(ledger.PeriodFinish - now)
		owed = owed.Add(owed, remaining.Mul(remaining, ledger.RewardRate))
	}

	moduleAcc, err := e.state.GetAccount(e.moduleAddr)
	if err != nil {
		return nil, err
	}
	moduleAcc.EnsureDefaults()
	sweep := new(big.Int).Sub(moduleAcc.BalanceRWD, owed)
	if sweep.Sign() <= 0 {
		if err := e.state.PutStakeLedger(ledger); err != nil {
			return nil, err
		}
		return big.NewInt(0), nil
	}
	callerAcc, err := e.state.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	callerAcc.EnsureDefaults()

	moduleAcc.BalanceRWD.Sub(moduleAcc.BalanceRWD, sweep)
	callerAcc.BalanceRWD.Add(callerAcc.BalanceRWD, sweep)

	if err := e.state.PutStakeLedger(ledger); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddr, moduleAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	e.emit(events.RewardsRescued{Distributor: caller, Amount: cloneAmount(sweep), StillOwed: owed})
	return sweep, nil
}

func (e *Engine) requireDistributor(caller [20]byte) error {
	roles, err := e.state.StakeRoles()
	if err != nil {
		return err
	}
	if roles.RewardsDistributor != caller || caller == ([20]byte{}) {
		return ErrUnauthorized
	}
	return nil
}
