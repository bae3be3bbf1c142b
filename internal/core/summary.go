package core

// AccountBalance is one row of a balance overview.
type AccountBalance struct {
	Account AccountRef
	Label   string
	Balance Money
}

// BalanceOverview summarizes every account of a profile at a given day.
type BalanceOverview struct {
	AsOf     Date
	Total    Money
	Accounts []AccountBalance
}
