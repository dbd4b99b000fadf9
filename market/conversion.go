package market

import "fmt"

// QuoteToAccountRate converts one unit of the instrument's quote currency
// into the account currency, using the instrument's own mid price.
func QuoteToAccountRate(instrument, accountCurrency string, mid float64) (float64, error) {
	meta, ok := Instruments[instrument]
	if !ok {
		return 0, fmt.Errorf("unknown instrument %s", instrument)
	}

	// EUR_USD, GBP_USD for a USD account
	if meta.QuoteCurrency == accountCurrency {
		return 1.0, nil
	}

	// USD_JPY for a USD account: mid is JPY per USD, we want USD per JPY
	if meta.BaseCurrency == accountCurrency {
		if mid <= 0 {
			return 0, fmt.Errorf("no price for %s", instrument)
		}
		return 1.0 / mid, nil
	}

	return 0, fmt.Errorf(
		"cross conversion not implemented for %s → %s",
		meta.QuoteCurrency,
		accountCurrency,
	)
}
