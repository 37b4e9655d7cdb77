package core

// BalanceSummary breaks an account balance down into its credit and debit
// subtotals. Amounts are stored signed, so Balance is simply the full sum;
// the subtotals exist for display.
type BalanceSummary struct {
	Credits Money // sum of credit amounts (positive)
	Debits  Money // sum of debit amounts (negative)
	Balance Money // Credits + Debits
}

// Overdrawn reports whether the account has a non-positive balance.
func (b BalanceSummary) Overdrawn() bool {
	return b.Balance.Cents <= 0
}
