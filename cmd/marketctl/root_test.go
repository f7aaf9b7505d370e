package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/mocks"
	"CryptoLens_MarketData/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	market *mocks.MockMarketData
	closed int
	err    error
}

func (f *fakeOpener) open(ctx context.Context) (marketdata.Service, func() error, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.market, func() error {
		f.closed++
		return nil
	}, nil
}

func execute(t *testing.T, f *fakeOpener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(f.open, &out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestListings_PassesFlags(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("TopListings", mock.Anything, models.ListingsQuery{
		Limit:    5,
		Page:     2,
		Currency: "eur",
		IDs:      []string{"bitcoin", "ethereum"},
	}).Return([]models.Cryptocurrency{{ID: "bitcoin", CurrentPrice: 1}}, nil)

	out, err := execute(t, f, "listings", "--limit", "5", "--page", "2", "--currency", "eur", "--ids", "bitcoin,ethereum")
	require.NoError(t, err)

	var listings []models.Cryptocurrency
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	assert.Equal(t, "bitcoin", listings[0].ID)
	assert.Contains(t, out, "\n  ")
	assert.Equal(t, 1, f.closed)
	f.market.AssertExpectations(t)
}

func TestHistory_DefaultDays(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("PriceHistory", mock.Anything, "bitcoin", marketdata.DefaultHistoryDays, "").
		Return([]models.PricePoint{{Timestamp: 1, Price: 2}}, nil)

	_, err := execute(t, f, "history", "bitcoin")
	require.NoError(t, err)
	f.market.AssertExpectations(t)
}

func TestHistory_RequiresID(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}

	_, err := execute(t, f, "history")
	assert.Error(t, err)
	assert.Equal(t, 0, f.closed)
}

func TestDetails(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("CoinDetails", mock.Anything, "ethereum", "gbp").Return(&models.CoinDetails{ID: "ethereum", Currency: "gbp"}, nil)

	out, err := execute(t, f, "details", "ethereum", "--currency", "gbp")
	require.NoError(t, err)
	assert.Contains(t, out, `"currency": "gbp"`)
}

func TestSearch_JoinsArgs(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("Search", mock.Anything, "shiba inu").Return([]models.SearchCoin{}, nil)

	out, err := execute(t, f, "search", "shiba", "inu")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestLookup(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("LookupCoin", mock.Anything, "btc", "", "").Return(&models.Cryptocurrency{ID: "bitcoin"}, nil)
	f.market.On("LookupCoin", mock.Anything, "", "Ethereum", "").Return(&models.Cryptocurrency{ID: "ethereum"}, nil)
	f.market.On("LookupCoins", mock.Anything, []string{"btc", "eth"}, "").Return(map[string]*models.Cryptocurrency{
		"btc": {ID: "bitcoin"},
	}, nil)

	_, err := execute(t, f, "lookup", "btc")
	require.NoError(t, err)

	_, err = execute(t, f, "lookup", "--name", "Ethereum")
	require.NoError(t, err)

	out, err := execute(t, f, "lookup", "btc", "eth")
	require.NoError(t, err)
	assert.Contains(t, out, `"btc"`)

	_, err = execute(t, f, "lookup")
	assert.Error(t, err)

	f.market.AssertExpectations(t)
}

func TestFacadeErrorSurfaces(t *testing.T) {
	f := &fakeOpener{market: &mocks.MockMarketData{}}
	f.market.On("Search", mock.Anything, "btc").Return(nil, fmt.Errorf("search: %w", models.ErrRateLimited))

	out, err := execute(t, f, "search", "btc")
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Empty(t, out)
	assert.Equal(t, 1, f.closed)
}

func TestOpenFailure(t *testing.T) {
	f := &fakeOpener{err: errors.New("invalid configuration: cache type")}

	_, err := execute(t, f, "search", "btc")
	assert.EqualError(t, err, "invalid configuration: cache type")
}
