package pricefeed

import "strings"

// quoteSuffixes are venue qualifiers seen on term-sheet tickers
// ("AMZN UQ", "MSFT UW") that quote providers do not understand.
var quoteSuffixes = []string{"UQ", "UW", "UN", "UP", "EQUITY"}

// CleanTicker converts a term-sheet ticker to the plain symbol a quote
// provider expects. Returns ok=false when nothing usable remains.
func CleanTicker(raw string) (string, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return "", false
	}

	for _, suffix := range quoteSuffixes {
		if strings.HasSuffix(ticker, " "+suffix) {
			ticker = strings.TrimSuffix(ticker, " "+suffix)
		} else if strings.HasSuffix(ticker, suffix) && ticker != suffix {
			ticker = strings.TrimSuffix(ticker, suffix)
		}
	}

	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return "", false
	}
	return ticker, true
}
