package stake

import (
	"math/big"

	"stakedrop/core/events"
)

// ClaimNFT mints the collectible with the given id to the caller, provided
// they hold a non-zero stake and have not claimed before. Minting goes through
// the registry under the staking module's authority; the reward accounting is
// untouched.
func (e *Engine) ClaimNFT(caller [20]byte, id uint64) error {
	if e.state == nil {
		return ErrNilState
	}
	if e.minter == nil {
		return ErrNoRegistry
	}
	pos, err := e.state.StakePosition(caller)
	if err != nil {
		return err
	}
	if pos.EnsureDefaults().Balance.Sign() == 0 {
		return ErrNoStake
	}
	claimed, err := e.state.CollectibleClaimed(caller)
	if err != nil {
		return err
	}
	if claimed {
		return ErrAlreadyClaimed
	}
	if err := e.minter.CreateNewForID(e.moduleAddr, caller, id); err != nil {
		return err
	}
	if err := e.state.MarkCollectibleClaimed(caller); err != nil {
		return err
	}
	e.emit(events.CollectibleClaimed{ID: id, Claimer: caller})
	return nil
}

// BuyNFT mints the collectible with the given id to the caller at the fixed
// price, bypassing the stake requirement. The full payment, overpayment
// included, is forwarded to the configured beneficiary.
func (e *Engine) BuyNFT(caller [20]byte, id uint64, value *big.Int) error {
	if e.state == nil {
		return ErrNilState
	}
	if e.minter == nil {
		return ErrNoRegistry
	}
	if value == nil || value.Sign() <= 0 || e.nftPrice.Sign() == 0 {
		return ErrBelowPrice
	}
	if value.Cmp(e.nftPrice) < 0 {
		return ErrBelowPrice
	}
	buyerAcc, err := e.state.GetAccount(caller)
	if err != nil {
		return err
	}
	buyerAcc.EnsureDefaults()
	if buyerAcc.BalanceNative.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.minter.CreateNewForID(e.moduleAddr, caller, id); err != nil {
		return err
	}
	if caller != e.nftBeneficiary {
		beneficiaryAcc, err := e.state.GetAccount(e.nftBeneficiary)
		if err != nil {
			return err
		}
		beneficiaryAcc.EnsureDefaults()

		buyerAcc.BalanceNative.Sub(buyerAcc.BalanceNative, value)
		beneficiaryAcc.BalanceNative.Add(beneficiaryAcc.BalanceNative, value)

		if err := e.state.PutAccount(caller, buyerAcc); err != nil {
			return err
		}
		if err := e.state.PutAccount(e.nftBeneficiary, beneficiaryAcc); err != nil {
			return err
		}
	}
	e.emit(events.CollectiblePurchased{
		ID:          id,
		Buyer:       caller,
		Paid:        cloneAmount(value),
		Beneficiary: e.nftBeneficiary,
	})
	return nil
}
