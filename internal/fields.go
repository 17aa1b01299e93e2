package internal

import "github.com/TiagoDeMatosDias/EDINET/internal/domain"

// standardFields is the whitelist of columns the standardization step emits.
// Every ratio formula may only reference these names; _PriorYear variants
// carry the comparative figure reported in the same filing.
var standardFields = []string{
	"netIncome", "netIncome_PriorYear",
	"netSales", "netSales_PriorYear",
	"operatingIncome", "operatingIncome_PriorYear",
	"grossProfit", "grossProfit_PriorYear",
	"totalAssets", "totalAssets_PriorYear",
	"totalDebt", "totalDebt_PriorYear",
	"shareholdersEquity", "shareholdersEquity_PriorYear",
	"currentAssets", "currentAssets_PriorYear",
	"currentLiabilities", "currentLiabilities_PriorYear",
	"inventories", "inventories_PriorYear",
	"costOfSales", "costOfSales_PriorYear",
	"dividends", "dividends_PriorYear",
	"buybacks", "buybacks_PriorYear",
	"operatingCashflow", "operatingCashflow_PriorYear",
	"investmentCashflow", "investmentCashflow_PriorYear",
	"financingCashflow", "financingCashflow_PriorYear",
	"SharesOutstanding",
	"PE_Ratio",

	// aggregates produced during standardization
	"Cashflow_free",
	"Cashflow_equity",
	"Cashflow_debt",
	"NCAV",
}

// KnownFields returns the standardized field whitelist, including the
// synthetic SharePrice column merged in from the stock price table.
func KnownFields() []string {
	out := make([]string, 0, len(standardFields)+1)
	out = append(out, standardFields...)
	out = append(out, domain.SharePriceField)
	return out
}
