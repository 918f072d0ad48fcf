package marketdata

import "github.com/blueoak/oakdash/pkg/models"

// referenceUniverse is the static list backing symbol search. Search is a
// convenience surface, not a discovery tool, so a small curated list of
// widely held names avoids burning provider quota on lookups.
var referenceUniverse = []models.SearchResult{
	{Symbol: "AAPL", CompanyName: "Apple Inc.", Sector: "Technology"},
	{Symbol: "MSFT", CompanyName: "Microsoft Corporation", Sector: "Technology"},
	{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", Sector: "Communication Services"},
	{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", Sector: "Consumer Cyclical"},
	{Symbol: "NVDA", CompanyName: "NVIDIA Corporation", Sector: "Technology"},
	{Symbol: "TSLA", CompanyName: "Tesla Inc.", Sector: "Consumer Cyclical"},
	{Symbol: "META", CompanyName: "Meta Platforms Inc.", Sector: "Communication Services"},
	{Symbol: "JNJ", CompanyName: "Johnson & Johnson", Sector: "Healthcare"},
	{Symbol: "KO", CompanyName: "The Coca-Cola Company", Sector: "Consumer Defensive"},
	{Symbol: "PG", CompanyName: "Procter & Gamble Co.", Sector: "Consumer Defensive"},
	{Symbol: "JPM", CompanyName: "JPMorgan Chase & Co.", Sector: "Financial Services"},
	{Symbol: "O", CompanyName: "Realty Income Corporation", Sector: "Real Estate"},
}
