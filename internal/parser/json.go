package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"CryptoLens_MarketData/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Parser implements the Service interface
type Parser struct {
	schemas *schemaSet
}

// NewParser creates a new market data payload parser
func NewParser() Service {
	return newParser()
}

// newParser creates the concrete implementation
func newParser() *Parser {
	return &Parser{schemas: compileSchemas()}
}

// ParseListings decodes a /coins/markets page
func (p *Parser) ParseListings(body []byte) ([]models.Cryptocurrency, error) {
	if err := p.validate(p.schemas.listings, "listings", body); err != nil {
		return nil, err
	}

	coins := make([]models.Cryptocurrency, 0)
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, malformed("listings", err)
	}
	return coins, nil
}

// ParsePriceHistory decodes the prices series of a market chart. Samples with
// a null price are skipped.
func (p *Parser) ParsePriceHistory(body []byte) ([]models.PricePoint, error) {
	if err := p.validate(p.schemas.marketChart, "market chart", body); err != nil {
		return nil, err
	}

	var chart struct {
		Prices [][]*float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, malformed("market chart", err)
	}

	points := make([]models.PricePoint, 0, len(chart.Prices))
	for _, sample := range chart.Prices {
		if sample[0] == nil || sample[1] == nil {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: int64(*sample[0]),
			Price:     *sample[1],
		})
	}
	return points, nil
}

// ParseCoinDetails flattens a /coins/{id} document into the fields the
// service exposes, reading the price in the requested currency
func (p *Parser) ParseCoinDetails(body []byte, currency string) (*models.CoinDetails, error) {
	if err := p.validate(p.schemas.coinDetail, "coin detail", body); err != nil {
		return nil, err
	}

	currency = strings.ToLower(currency)
	doc := gjson.ParseBytes(body)

	details := &models.CoinDetails{
		ID:                       doc.Get("id").String(),
		Symbol:                   doc.Get("symbol").String(),
		Name:                     doc.Get("name").String(),
		Image:                    doc.Get("image.large").String(),
		Currency:                 currency,
		CurrentPrice:             doc.Get("market_data.current_price." + currency).Float(),
		PriceChangePercentage24h: doc.Get("market_data.price_change_percentage_24h").Float(),
		MarketCapRank:            int(doc.Get("market_cap_rank").Int()),
	}
	return details, nil
}

// ParseSearch decodes the coin hits of a /search response
func (p *Parser) ParseSearch(body []byte) ([]models.SearchCoin, error) {
	if err := p.validate(p.schemas.search, "search", body); err != nil {
		return nil, err
	}

	var result struct {
		Coins []models.SearchCoin `json:"coins"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, malformed("search", err)
	}
	if result.Coins == nil {
		result.Coins = []models.SearchCoin{}
	}
	return result.Coins, nil
}

// ParseRecommendations decodes the recommender backend payload
func (p *Parser) ParseRecommendations(body []byte) (*models.RawRecommendations, error) {
	if err := p.validate(p.schemas.recommendations, "recommendations", body); err != nil {
		return nil, err
	}

	var result models.RawRecommendations
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, malformed("recommendations", err)
	}
	return &result, nil
}

// validate checks body against schema
func (p *Parser) validate(schema *jsonschema.Schema, shape string, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return malformed(shape, fmt.Errorf("empty body"))
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return malformed(shape, err)
	}
	if err := schema.Validate(doc); err != nil {
		return malformed(shape, err)
	}
	return nil
}

func malformed(shape string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrMalformedResponse, shape, err)
}
