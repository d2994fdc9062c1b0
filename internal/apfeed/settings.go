package apfeed

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Settings are the configuration-controlled constants written into every record.
type Settings struct {
	OrgName          string
	EmployeeInd      string
	ShipZip          string
	ShipState        string
	PaymentGroup     string
	NonCheckInd      string
	ChartCode        string
	ObjectCode       string
	ApplyDiscountInd string
	EFTOverrideInd   string

	// TaxRate is applied to taxed line amounts for the running report totals.
	TaxRate decimal.Decimal
}

// DefaultSettings returns the settings of the general library feed.
func DefaultSettings() Settings {
	return Settings{
		OrgName:          "GENERALLIBRARY",
		EmployeeInd:      "N",
		ShipZip:          "95616-5292",
		ShipState:        "CA",
		PaymentGroup:     "2",
		NonCheckInd:      "N",
		ChartCode:        "3",
		ObjectCode:       "9200",
		ApplyDiscountInd: "N",
		EFTOverrideInd:   "N",
		TaxRate:          decimal.Zero,
	}
}

// FeedName returns the org tag that opens every record and frames the
// document: the upper-cased org name without spaces, padded to 15.
func (s Settings) FeedName() string {
	return fit(strings.ToUpper(strings.ReplaceAll(s.OrgName, " ", "")), FieldFeedName.Width())
}
