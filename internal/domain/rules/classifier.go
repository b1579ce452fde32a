package rules

import (
	"strings"

	"github.com/fintrack/recon-backend/internal/domain/scorer"
)

// keywordCategories maps narration keywords to default categories. Checked
// in order; first hit wins.
var keywordCategories = []struct {
	keyword  string
	category string
}{
	{"SALARY", "Income:Salary"},
	{"INTEREST", "Income:Interest"},
	{"DIVIDEND", "Income:Dividend"},
	{"RENT", "Expense:Rent"},
	{"ELECTRICITY", "Expense:Utilities"},
	{"BROADBAND", "Expense:Utilities"},
	{"PETROL", "Expense:Fuel"},
	{"FUEL", "Expense:Fuel"},
	{"SWIGGY", "Expense:Meals"},
	{"ZOMATO", "Expense:Meals"},
	{"AMAZON", "Expense:Shopping"},
	{"FLIPKART", "Expense:Shopping"},
	{"INSURANCE", "Expense:Insurance"},
	{"EMI", "Expense:Loan"},
	{"GST", "Tax:GST"},
	{"TDS", "Tax:TDS"},
	{"ATM", "Cash:Withdrawal"},
	{"CASH WDL", "Cash:Withdrawal"},
}

// Classify is the built-in heuristic fallback used when no learned rule
// covers a narration. Vendor comes from the rail-extracted counterparty
// name when one exists.
func Classify(narration string) Enrichment {
	var e Enrichment

	if key, ok := scorer.ExtractKey(narration); ok {
		e.Vendor = key.Name
	}

	upper := strings.ToUpper(narration)
	for _, kc := range keywordCategories {
		if strings.Contains(upper, kc.keyword) {
			e.Category = kc.category
			break
		}
	}

	return e
}
