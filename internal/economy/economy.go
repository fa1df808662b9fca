// Package economy turns voting activity into spendable currency.
//
// A first vote earns one fragment. Ten fragments convert to one boost. A boost
// is spent to append a second value to a vote.
//
// The functions here are pure transitions on a *model.Account; the service
// layer runs them inside an atomic account update so the conversion is
// re-evaluated on every write, including delayed or replayed ones.
package economy

import (
	"github.com/sakif/suggestion-board/internal/apperror"
	"github.com/sakif/suggestion-board/internal/model"
)

// FragmentsPerBoost is the conversion rate.
const FragmentsPerBoost = 10

// Normalize converts any whole multiple of FragmentsPerBoost into boosts and
// returns how many boosts were minted. Negative counters are clamped to zero.
func Normalize(acc *model.Account) int {
	if acc.Fragments < 0 {
		acc.Fragments = 0
	}
	if acc.Boosts < 0 {
		acc.Boosts = 0
	}
	minted := acc.Fragments / FragmentsPerBoost
	acc.Boosts += minted
	acc.Fragments %= FragmentsPerBoost
	return minted
}

// Earn credits n fragments and normalizes. It returns the boosts minted.
func Earn(acc *model.Account, n int) int {
	if n > 0 {
		acc.Fragments += n
	}
	return Normalize(acc)
}

// Spend takes one boost. It fails with InsufficientBoosts and leaves acc
// untouched when none are available.
func Spend(acc *model.Account) error {
	Normalize(acc)
	if acc.Boosts <= 0 {
		return apperror.InsufficientBoosts()
	}
	acc.Boosts--
	return nil
}

// CanSpend reports whether Spend would succeed on acc. acc is not modified.
func CanSpend(acc model.Account) bool {
	Normalize(&acc)
	return acc.Boosts > 0
}

// Refund returns a boost taken by Spend whose vote write then failed.
func Refund(acc *model.Account) {
	acc.Boosts++
	Normalize(acc)
}
