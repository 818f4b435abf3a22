package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type StakeMetrics struct {
	totalStaked   prometheus.Gauge
	deposits      prometheus.Counter
	withdrawals   prometheus.Counter
	rewardsPaid   prometheus.Counter
	rewardsFunded prometheus.Counter
	rescued       prometheus.Counter
}

var (
	stakeOnce     sync.Once
	stakeRegistry *StakeMetrics
)

func Stake() *StakeMetrics {
	stakeOnce.Do(func() {
		stakeRegistry = &StakeMetrics{
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "stake_total_staked",
				Help: "Pool tokens currently held by the staking ledger.",
			}),
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stake_deposits_total",
				Help: "Count of successful stake deposits.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stake_withdrawals_total",
				Help: "Count of successful principal withdrawals.",
			}),
			rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stake_rewards_paid_total",
				Help: "Cumulative reward tokens paid out to stakers.",
			}),
			rewardsFunded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stake_rewards_funded_total",
				Help: "Cumulative reward tokens notified by the distributor.",
			}),
			rescued: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "stake_rewards_rescued_total",
				Help: "Cumulative stuck reward tokens swept by the distributor.",
			}),
		}
		prometheus.MustRegister(
			stakeRegistry.totalStaked,
			stakeRegistry.deposits,
			stakeRegistry.withdrawals,
			stakeRegistry.rewardsPaid,
			stakeRegistry.rewardsFunded,
			stakeRegistry.rescued,
		)
	})
	return stakeRegistry
}

func approximate(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func (m *StakeMetrics) ObserveTotalStaked(total *big.Int) {
	if m == nil {
		return
	}
	m.totalStaked.Set(approximate(total))
}

func (m *StakeMetrics) ObserveDeposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}

func (m *StakeMetrics) ObserveWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

func (m *StakeMetrics) ObserveRewardPaid(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.rewardsPaid.Add(approximate(amount))
}

func (m *StakeMetrics) ObserveRewardFunded(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.rewardsFunded.Add(approximate(amount))
}

func (m *StakeMetrics) ObserveRescue(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.rescued.Add(approximate(amount))
}
