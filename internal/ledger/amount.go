package ledger

import (
	"math/big"
)

// maxAmount caps every balance, allowance and totalSupply at 2^128-1.
// Arithmetic that would exceed the cap is rejected, never wrapped.
var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Amount is an unsigned token quantity in the token's smallest unit.
// The zero value is zero tokens. Amounts are immutable; arithmetic
// returns fresh values.
type Amount struct {
	v *big.Int
}

// ParseAmount converts a base-10 integer string into an Amount.
// Negative values, fractions and values beyond the cap are rejected.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, reject(KindInvalidAmount, "amount %q is not a base-10 integer", s)
	}
	if v.Sign() < 0 {
		return Amount{}, reject(KindInvalidAmount, "amount must not be negative")
	}
	if v.Cmp(maxAmount) > 0 {
		return Amount{}, reject(KindInvalidAmount, "amount exceeds the 128-bit cap")
	}
	return Amount{v: v}, nil
}

// AmountFromUint64 wraps a machine integer. Handy in tests and genesis.
func AmountFromUint64(v uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(v)}
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.big().Sign() == 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.big().Sign() > 0 }

// Cmp compares a to b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }

// Add returns a+b, rejecting results beyond the cap.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.big(), b.big())
	if sum.Cmp(maxAmount) > 0 {
		return Amount{}, reject(KindInvalidAmount, "amount overflow")
	}
	return Amount{v: sum}, nil
}

// Sub returns a-b, rejecting results below zero.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.big().Cmp(b.big()) < 0 {
		return Amount{}, reject(KindInsufficientBalance, "amount underflow")
	}
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}, nil
}

// SplitFee divides the amount into a platform cut of feeBps basis points
// and the owner remainder. The platform cut rounds down so the owner
// absorbs the rounding, never the platform overdrawing the price.
func (a Amount) SplitFee(feeBps uint32) (platformCut, ownerCut Amount) {
	cut := new(big.Int).Mul(a.big(), new(big.Int).SetUint64(uint64(feeBps)))
	cut.Quo(cut, big.NewInt(10_000))
	rest := new(big.Int).Sub(a.big(), cut)
	return Amount{v: cut}, Amount{v: rest}
}

// String renders the amount as a base-10 integer in smallest units.
func (a Amount) String() string { return a.big().String() }
