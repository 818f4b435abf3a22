package market

import "errors"

var (
	ErrNilState           = errors.New("market engine: state not configured")
	ErrUnauthorized       = errors.New("market engine: unauthorized")
	ErrSupplyCapExceeded  = errors.New("market engine: supply cap exceeded")
	ErrBadTokenID         = errors.New("market engine: token id out of mint sequence")
	ErrUnknownToken       = errors.New("market engine: unknown token")
	ErrZeroPrice          = errors.New("market engine: min price must be positive")
	ErrMintingActive      = errors.New("market engine: offers open once the full supply is minted")
	ErrInactiveOffer      = errors.New("market engine: no active offer")
	ErrBelowMinPrice      = errors.New("market engine: payment below min price")
	ErrNotAuthorizedBuyer = errors.New("market engine: offer restricted to another buyer")
	ErrInsufficientFunds  = errors.New("market engine: insufficient funds")
	ErrBadFeeSplit        = errors.New("market engine: platform fee exceeds 100%")
)
