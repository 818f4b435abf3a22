package stake

import "strings"

// Policy selects the reward-claim state machine layered over the ledger. The
// accounting core is identical for both variants; only the claim and exit
// gates differ.
type Policy string

const (
	// PolicyClaimAnytime lets stakers bank rewards whenever they like.
	PolicyClaimAnytime Policy = "anytime"
	// PolicyClaimAfterLock disables standalone reward claims entirely and
	// gates exit (withdraw plus payout) behind a fixed lock window measured
	// from the module start time. Bare principal withdrawal stays free.
	PolicyClaimAfterLock Policy = "afterLock"
)

// ParsePolicy normalises a configured policy name.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.TrimSpace(raw)) {
	case PolicyClaimAnytime, Policy(""):
		return PolicyClaimAnytime, nil
	case PolicyClaimAfterLock:
		return PolicyClaimAfterLock, nil
	}
	return "", ErrUnknownPolicy
}

// canClaim gates standalone GetReward calls.
func (e *Engine) canClaim() error {
	if e.policy == PolicyClaimAfterLock {
		return ErrClaimDisabled
	}
	return nil
}

// canExit gates the combined withdraw-and-claim flow.
func (e *Engine) canExit(now uint64) error {
	if e.policy != PolicyClaimAfterLock {
		return nil
	}
	if now < e.startTime+e.lockDuration {
		return ErrLockNotExpired
	}
	return nil
}
