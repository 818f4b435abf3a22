package stake

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func scaled(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), Scale)
}

func fundedLedger(rate int64, duration uint64) *Ledger {
	ledger := (&Ledger{}).EnsureDefaults()
	ledger.RewardRate = big.NewInt(rate)
	ledger.PeriodFinish = duration
	return ledger
}

func TestRewardPerTokenWithoutStake(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.RewardPerTokenStored = scaled(7)

	require.Equal(t, scaled(7), ledger.RewardPerToken(50), "accumulator must not grow while nothing is staked")
	require.Equal(t, scaled(7), ledger.RewardPerToken(500), "past the period the accumulator stays put")
}

func TestRewardPerTokenAccrues(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.TotalStaked = big.NewInt(100)

	// 50s at rate 10 over 100 staked units = 5 full units per staked token.
	require.Equal(t, scaled(5), ledger.RewardPerToken(50))
	// Clamped at the period finish.
	require.Equal(t, scaled(10), ledger.RewardPerToken(100))
	require.Equal(t, scaled(10), ledger.RewardPerToken(10_000))
}

func TestEarnedMatchesEarnedByShare(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.TotalStaked = big.NewInt(100)
	pos := &Position{
		Balance:            big.NewInt(40),
		RewardPerTokenPaid: big.NewInt(0),
		RewardsAccrued:     big.NewInt(0),
	}

	earned := ledger.Earned(pos, 80)
	byShare := ledger.EarnedByShare(big.NewInt(40), 80)
	require.Equal(t, earned, byShare)
	require.Equal(t, big.NewInt(320), earned)
}

func TestEarnedByShareRejectsNonPositive(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.TotalStaked = big.NewInt(100)

	require.Equal(t, big.NewInt(0), ledger.EarnedByShare(nil, 50))
	require.Equal(t, big.NewInt(0), ledger.EarnedByShare(big.NewInt(0), 50))
	require.Equal(t, big.NewInt(0), ledger.EarnedByShare(big.NewInt(-5), 50))
}

func TestCheckpointBanksAccrual(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.TotalStaked = big.NewInt(100)
	pos := (&Position{Balance: big.NewInt(100)}).EnsureDefaults()

	ledger.Checkpoint(pos, 60)
	require.Equal(t, big.NewInt(600), pos.RewardsAccrued)
	require.Equal(t, scaled(6), pos.RewardPerTokenPaid)
	require.Equal(t, big.NewInt(600), ledger.BankedTotal)
	require.Equal(t, uint64(60), ledger.LastUpdateTime)

	// Checkpointing again at the same instant must be a no-op on accrual.
	ledger.Checkpoint(pos, 60)
	require.Equal(t, big.NewInt(600), pos.RewardsAccrued)
	require.Equal(t, big.NewInt(600), ledger.BankedTotal)
}

func TestCheckpointNilPositionFoldsTimeOnly(t *testing.T) {
	ledger := fundedLedger(10, 100)
	ledger.TotalStaked = big.NewInt(50)

	ledger.Checkpoint(nil, 40)
	require.Equal(t, scaled(8), ledger.RewardPerTokenStored)
	require.Equal(t, uint64(40), ledger.LastUpdateTime)
	require.Equal(t, big.NewInt(0), ledger.BankedTotal)
}

func TestEqualStakesAccrueEqually(t *testing.T) {
	ledger := fundedLedger(10, 100)
	a := (&Position{}).EnsureDefaults()
	b := (&Position{}).EnsureDefaults()

	ledger.Checkpoint(a, 0)
	ledger.creditStake(a, big.NewInt(100))
	ledger.Checkpoint(b, 0)
	ledger.creditStake(b, big.NewInt(100))

	// One settles right at the period finish and leaves, the other comes back
	// much later; the clamped accumulator keeps the split identical.
	ledger.Checkpoint(a, 100)
	ledger.debitStake(a, big.NewInt(100))
	ledger.Checkpoint(b, 5_000)
	ledger.debitStake(b, big.NewInt(100))

	require.Equal(t, a.RewardsAccrued, b.RewardsAccrued)
	require.Equal(t, big.NewInt(500), a.RewardsAccrued)
	require.Equal(t, big.NewInt(500), b.RewardsAccrued)
}

func TestLateStakerDoesNotDiluteHistory(t *testing.T) {
	ledger := fundedLedger(10, 100)
	early := (&Position{}).EnsureDefaults()
	late := (&Position{}).EnsureDefaults()

	ledger.Checkpoint(early, 0)
	ledger.creditStake(early, big.NewInt(100))

	// Halfway through the period a second, equal stake arrives.
	ledger.Checkpoint(late, 50)
	ledger.creditStake(late, big.NewInt(100))

	ledger.Checkpoint(early, 100)
	ledger.Checkpoint(late, 100)

	// Early holder keeps the full first half plus half of the second half.
	require.Equal(t, big.NewInt(750), early.RewardsAccrued)
	require.Equal(t, big.NewInt(250), late.RewardsAccrued)
}

func TestOwedBoundsObligation(t *testing.T) {
	ledger := fundedLedger(10, 100)
	pos := (&Position{}).EnsureDefaults()
	ledger.Checkpoint(pos, 0)
	ledger.creditStake(pos, big.NewInt(100))

	ledger.Checkpoint(nil, 50)
	require.Equal(t, big.NewInt(500), ledger.Owed())

	// Banking the accrual moves the obligation without changing its size.
	ledger.Checkpoint(pos, 50)
	require.Equal(t, big.NewInt(500), ledger.BankedTotal)
	require.Equal(t, big.NewInt(500), ledger.Owed())
}

func TestNotifyRewardAmountStartsPeriod(t *testing.T) {
	ledger := (&Ledger{}).EnsureDefaults()

	err := ledger.NotifyRewardAmount(big.NewInt(1000), 100, 0, big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), ledger.RewardRate)
	require.Equal(t, uint64(100), ledger.PeriodFinish)
	require.Equal(t, uint64(0), ledger.LastUpdateTime)
}

func TestNotifyRewardAmountFoldsLeftover(t *testing.T) {
	ledger := (&Ledger{}).EnsureDefaults()
	require.NoError(t, ledger.NotifyRewardAmount(big.NewInt(1000), 100, 0, big.NewInt(2000)))

	// 50s in, 500 of the original budget is unspent and folds into the new rate.
	require.NoError(t, ledger.NotifyRewardAmount(big.NewInt(500), 100, 50, big.NewInt(2000)))
	require.Equal(t, big.NewInt(10), ledger.RewardRate)
	require.Equal(t, uint64(150), ledger.PeriodFinish)
}

func TestNotifyRewardAmountSolvency(t *testing.T) {
	ledger := (&Ledger{}).EnsureDefaults()

	err := ledger.NotifyRewardAmount(big.NewInt(1000), 100, 0, big.NewInt(999))
	require.ErrorIs(t, err, ErrInsolventRewardRate)
	// A failed notification leaves the ledger untouched.
	require.Equal(t, big.NewInt(0), ledger.RewardRate)
	require.Equal(t, uint64(0), ledger.PeriodFinish)
}

func TestNotifyRewardAmountZeroDuration(t *testing.T) {
	ledger := (&Ledger{}).EnsureDefaults()
	err := ledger.NotifyRewardAmount(big.NewInt(1000), 0, 0, big.NewInt(1000))
	require.ErrorIs(t, err, ErrZeroDuration)
}
