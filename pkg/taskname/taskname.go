package taskname

const (
	// Investment tasks
	InvestmentMature      = "investment:mature"
	InvestmentMaturityRun = "investment:maturity:run"
)
