package models

import "github.com/shopspring/decimal"

// NetWorth sums the balances of the given accounts. The result is floored at
// zero: collectively overdrawn accounts give a net worth of 0.
func NetWorth(accounts []BankAccount) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accounts {
		sum = sum.Add(a.Balance)
	}
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}
