package dividend

// fallbackUniverse is the curated list of established dividend payers used
// when the screener endpoint is unavailable.
var fallbackUniverse = []string{
	"O", "JNJ", "KO", "PG", "JPM", "MSFT", "AAPL", "ABBV", "PEP", "XOM",
	"CVX", "MCD", "WMT", "HD", "VZ", "T", "MO", "MAIN", "STAG",
}

// reliableFallbacks backfills the portfolio when screening plus the relaxed
// pool still yield fewer than the required holdings.
var reliableFallbacks = []string{"O", "JNJ", "KO", "PG", "MAIN"}

var sectorBySymbol = map[string]string{
	"O":    "Real Estate",
	"JNJ":  "Healthcare",
	"KO":   "Consumer Defensive",
	"PG":   "Consumer Defensive",
	"JPM":  "Financial Services",
	"MSFT": "Technology",
	"AAPL": "Technology",
	"ABBV": "Healthcare",
	"PEP":  "Consumer Defensive",
	"XOM":  "Energy",
	"CVX":  "Energy",
	"MCD":  "Consumer Cyclical",
	"WMT":  "Consumer Defensive",
	"HD":   "Consumer Cyclical",
	"VZ":   "Communication Services",
	"T":    "Communication Services",
	"MO":   "Consumer Defensive",
	"MAIN": "Financial Services",
	"STAG": "Real Estate",
}

// sectorFor resolves a holding's sector, preferring the fetched value and
// consulting the static map for symbols the provider left unclassified.
func sectorFor(symbol, fetched string) string {
	if fetched != "" && fetched != "Unknown" {
		return fetched
	}
	if s, ok := sectorBySymbol[symbol]; ok {
		return s
	}
	return "Unknown"
}
