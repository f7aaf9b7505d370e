package models

import (
	"strings"
	"time"
)

// Sparkline holds the 7-day price samples returned with listings
type Sparkline struct {
	Price []float64 `json:"price"`
}

// Cryptocurrency is one row of the top listings
type Cryptocurrency struct {
	ID                       string     `json:"id"`
	Symbol                   string     `json:"symbol"`
	Name                     string     `json:"name"`
	Image                    string     `json:"image"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h"`
	PriceChange1hInCurrency  *float64   `json:"price_change_percentage_1h_in_currency,omitempty"`
	PriceChange24hInCurrency *float64   `json:"price_change_percentage_24h_in_currency,omitempty"`
	PriceChange7dInCurrency  *float64   `json:"price_change_percentage_7d_in_currency,omitempty"`
	SparklineIn7d            *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// ListingsQuery selects a page of the market listings
type ListingsQuery struct {
	Limit     int      `json:"limit"`
	Page      int      `json:"page"`
	Currency  string   `json:"currency"`
	Sparkline bool     `json:"sparkline"`
	IDs       []string `json:"ids,omitempty"`
}

// PricePoint is a single [timestamp, price] sample of a price history
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// CoinDetails is the flattened instrument detail object
type CoinDetails struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	Currency                 string  `json:"currency"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCapRank            int     `json:"market_cap_rank"`
}

// SearchCoin is a coin entry of the search endpoint
type SearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
}

// CoinIndex is a secondary index over one cached listings page, keyed by
// lower-cased symbol and lower-cased name
type CoinIndex struct {
	Currency string                     `json:"currency"`
	Coins    []Cryptocurrency           `json:"coins"`
	BySymbol map[string]*Cryptocurrency `json:"-"`
	ByName   map[string]*Cryptocurrency `json:"-"`
}

// NewCoinIndex builds the symbol and name maps over coins. On duplicate keys
// the higher-ranked (earlier) coin wins.
func NewCoinIndex(currency string, coins []Cryptocurrency) *CoinIndex {
	idx := &CoinIndex{
		Currency: currency,
		Coins:    coins,
	}
	idx.Rebuild()
	return idx
}

// Rebuild recomputes the lookup maps from Coins. Needed after the index was
// decoded from JSON, since the maps are not serialized.
func (i *CoinIndex) Rebuild() {
	i.BySymbol = make(map[string]*Cryptocurrency, len(i.Coins))
	i.ByName = make(map[string]*Cryptocurrency, len(i.Coins))
	for n := range i.Coins {
		coin := &i.Coins[n]
		symbol := strings.ToLower(coin.Symbol)
		name := strings.ToLower(coin.Name)
		if _, exists := i.BySymbol[symbol]; !exists && symbol != "" {
			i.BySymbol[symbol] = coin
		}
		if _, exists := i.ByName[name]; !exists && name != "" {
			i.ByName[name] = coin
		}
	}
}

// Lookup resolves a coin by symbol first, then by name, case-insensitively.
// The index is shared between callers, so Lookup never mutates it.
func (i *CoinIndex) Lookup(symbol, name string) (*Cryptocurrency, bool) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	name = strings.ToLower(strings.TrimSpace(name))

	if i.BySymbol == nil || i.ByName == nil {
		return i.scan(symbol, name)
	}
	if coin, ok := i.BySymbol[symbol]; ok && symbol != "" {
		return coin, true
	}
	if coin, ok := i.ByName[name]; ok && name != "" {
		return coin, true
	}
	return nil, false
}

// scan is the linear fallback for an index whose maps were never built
func (i *CoinIndex) scan(symbol, name string) (*Cryptocurrency, bool) {
	if symbol != "" {
		for n := range i.Coins {
			if strings.ToLower(i.Coins[n].Symbol) == symbol {
				return &i.Coins[n], true
			}
		}
	}
	if name != "" {
		for n := range i.Coins {
			if strings.ToLower(i.Coins[n].Name) == name {
				return &i.Coins[n], true
			}
		}
	}
	return nil, false
}

// RiskProfile is the investor profile assigned by the recommender backend
type RiskProfile string

const (
	RiskProfileLow      RiskProfile = "baixo"
	RiskProfileModerate RiskProfile = "moderado"
	RiskProfileHigh     RiskProfile = "alto"
)

// RawRecommendation is one item as returned by the recommender backend
type RawRecommendation struct {
	Symbol             string      `json:"symbol"`
	Network            string      `json:"network"`
	RiskLevel          RiskProfile `json:"Risk_Level"`
	PredictedMovement  int         `json:"predicted_movement"`
	PredictedProbaUp   float64     `json:"predicted_proba_up"`
	EligibleForProfile bool        `json:"eligible_for_profile"`
}

// RawRecommendations is the recommender backend payload
type RawRecommendations struct {
	Profile         RiskProfile         `json:"profile"`
	Recommendations []RawRecommendation `json:"recommendations"`
}

// EnrichedRecommendation joins a recommendation with its market data
type EnrichedRecommendation struct {
	Cryptocurrency
	ProfileSource      RiskProfile `json:"profile_source"`
	RiskLevel          RiskProfile `json:"risk_level"`
	Network            string      `json:"network"`
	PredictedMovement  int         `json:"predicted_movement"`
	PredictedProbaUp   float64     `json:"predicted_proba_up"`
	EligibleForProfile bool        `json:"eligible_for_profile"`
}

// RecommendationsResult is the enriched recommendation list for the user profile
type RecommendationsResult struct {
	Profile         RiskProfile              `json:"profile"`
	Recommendations []EnrichedRecommendation `json:"recommendations"`
}

// LogSeverity represents the severity level of a log entry
type LogSeverity string

const (
	LogSeverityLow    LogSeverity = "low"
	LogSeverityMedium LogSeverity = "medium"
	LogSeverityHigh   LogSeverity = "high"
)

// ProcessType represents the type of process that created the log
type ProcessType string

const (
	ProcessTypeRequest  ProcessType = "request"
	ProcessTypeInternal ProcessType = "internal"
)

// LogEvent represents a process-specific logging context
type LogEvent struct {
	ProcessID   string      `json:"process_id"`
	ProcessType ProcessType `json:"process_type"`
	StartTime   time.Time   `json:"start_time"`
	ClientIP    string      `json:"client_ip,omitempty"`
}

// LogEntry represents a structured log entry
type LogEntry struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Severity    LogSeverity            `json:"severity,omitempty"`
	Message     string                 `json:"message"`
	Operation   string                 `json:"operation"`
	TargetName  string                 `json:"target_name,omitempty"`
	ProcessID   string                 `json:"process_id"`
	ProcessType ProcessType            `json:"process_type"`
	ClientIP    string                 `json:"client_ip,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
