package stake

import "errors"

var (
	ErrNilState            = errors.New("stake engine: state not configured")
	ErrZeroAmount          = errors.New("stake engine: amount must be positive")
	ErrInsufficientBalance = errors.New("stake engine: insufficient balance")
	ErrUnauthorized        = errors.New("stake engine: unauthorized")
	ErrLockNotExpired      = errors.New("stake engine: lock not expired")
	ErrClaimDisabled       = errors.New("stake engine: rewards settle only through exit")
	ErrInsolventRewardRate = errors.New("stake engine: reward rate exceeds funded balance")
	ErrZeroDuration        = errors.New("stake engine: rewards duration not configured")
	ErrAlreadyClaimed      = errors.New("stake engine: collectible already claimed")
	ErrNoStake             = errors.New("stake engine: active stake required to claim")
	ErrBelowPrice          = errors.New("stake engine: payment below collectible price")
	ErrNoRegistry          = errors.New("stake engine: collectible registry not configured")
	ErrUnknownPolicy       = errors.New("stake engine: unknown claim policy")
)
