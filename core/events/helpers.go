package events

import (
	"math/big"

	"stakedrop/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func renderAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.StakePrefix, addr[:]).String()
}
