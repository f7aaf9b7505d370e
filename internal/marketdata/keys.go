package marketdata

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/models"
)

const (
	DefaultCurrency     = "usd"
	DefaultListingLimit = 100
	DefaultHistoryDays  = 7
	MaxListingLimit     = 250

	// IndexPageSize is the listings page the coin index is built from
	IndexPageSize = 250
)

// Kind names one cached data kind; it labels cache keys, logs and metrics
type Kind string

const (
	KindListings Kind = "listings"
	KindHistory  Kind = "history"
	KindDetails  Kind = "details"
	KindSearch   Kind = "search"
	KindIndex    Kind = "index"
)

// TTLs holds the cache lifetime of each data kind
type TTLs struct {
	Listings time.Duration `yaml:"listings"`
	History  time.Duration `yaml:"history"`
	Details  time.Duration `yaml:"details"`
	Search   time.Duration `yaml:"search"`
	Index    time.Duration `yaml:"index"`
}

// DefaultTTLs returns short lifetimes for volatile listings and longer ones
// for data that rarely changes
func DefaultTTLs() TTLs {
	return TTLs{
		Listings: time.Minute,
		History:  5 * time.Minute,
		Details:  10 * time.Minute,
		Search:   10 * time.Minute,
		Index:    2 * time.Minute,
	}
}

func (t TTLs) of(kind Kind) time.Duration {
	switch kind {
	case KindListings:
		return t.Listings
	case KindHistory:
		return t.History
	case KindDetails:
		return t.Details
	case KindSearch:
		return t.Search
	case KindIndex:
		return t.Index
	}
	return 0
}

var currencyPattern = regexp.MustCompile(`^[a-z]{3,5}$`)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidParams, fmt.Sprintf(format, args...))
}

// normalizeCurrency lower-cases currency, defaulting to usd
func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return DefaultCurrency, nil
	}
	if !currencyPattern.MatchString(currency) {
		return "", invalid("currency must be 3-5 letters, got %q", currency)
	}
	return currency, nil
}

// normalizeID trims and lower-cases an instrument id
func normalizeID(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", invalid("coin id must not be empty")
	}
	if strings.ContainsAny(id, "/?#:% ") {
		return "", invalid("coin id %q contains illegal characters", id)
	}
	return id, nil
}

// normalizeListings applies defaults and validates a listings query. IDs are
// lower-cased, de-duplicated and sorted so equal queries share a key.
func normalizeListings(q models.ListingsQuery) (models.ListingsQuery, error) {
	if q.Limit == 0 {
		q.Limit = DefaultListingLimit
	}
	if q.Limit < 1 || q.Limit > MaxListingLimit {
		return q, invalid("limit must be between 1 and %d, got %d", MaxListingLimit, q.Limit)
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return q, invalid("page must be positive, got %d", q.Page)
	}

	currency, err := normalizeCurrency(q.Currency)
	if err != nil {
		return q, err
	}
	q.Currency = currency

	if len(q.IDs) > 0 {
		seen := make(map[string]struct{}, len(q.IDs))
		ids := make([]string, 0, len(q.IDs))
		for _, raw := range q.IDs {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			id, err := normalizeID(raw)
			if err != nil {
				return q, err
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		sort.Strings(ids)
		q.IDs = ids
	}
	if len(q.IDs) == 0 {
		q.IDs = nil
	}
	return q, nil
}

// ListingsKey is the cache key of a normalized listings query
func ListingsKey(q models.ListingsQuery) string {
	return fmt.Sprintf("markets:%s:%d:%d:%t:%s", q.Currency, q.Limit, q.Page, q.Sparkline, strings.Join(q.IDs, ","))
}

// HistoryKey is the cache key of a price history window
func HistoryKey(id, currency string, days int) string {
	return "history:" + id + ":" + currency + ":" + strconv.Itoa(days)
}

// DetailsKey is the cache key of an instrument detail document
func DetailsKey(id, currency string) string {
	return "details:" + id + ":" + currency
}

// SearchKey is the cache key of a search query
func SearchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

// IndexKey is the cache key of the coin index for a currency
func IndexKey(currency string) string {
	return "index:" + currency + ":" + strconv.Itoa(IndexPageSize)
}

// historyInterval picks the sample granularity for a lookback window
func historyInterval(days int) string {
	if days <= 1 {
		return "hourly"
	}
	return "daily"
}
