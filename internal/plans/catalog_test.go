package plans

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
plans:
  - name: Daily 2 Odds
    slug: daily_2_odds
    duration_days: 30
    benefits: ["Two-odds accumulator every day"]
    prices:
      - {country: Nigeria, price: "15000", currency: NGN}
      - {country: Ghana, price: "150", currency: GHS}
      - {country: Other, price: "12.50", currency: USD}
  - name: VIP
    slug: vip
    requires_activation: true
    duration_days: 30
    prices:
      - {country: Nigeria, price: "50000", activation_fee: "10000"}
`

func TestLoadCatalogRejectsUnknownKeysAndBadPrices(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("plans:\n  - name: x\n    slug: x\n    colour: red\n"))
	require.Error(t, err)

	_, err = LoadCatalog(strings.NewReader("plans:\n  - name: x\n    slug: x\n    prices:\n      - {country: Nigeria, price: cheap}\n"))
	require.Error(t, err)

	_, err = LoadCatalog(strings.NewReader("plans:\n  - {name: a, slug: dup}\n  - {name: b, slug: dup}\n"))
	require.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	catalog, err := LoadCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	first, err := Seed(ctx, svc, catalog)
	require.NoError(t, err)
	require.Equal(t, SeedResult{Created: 2, Prices: 4}, first)

	second, err := Seed(ctx, svc, catalog)
	require.NoError(t, err)
	require.Equal(t, SeedResult{Updated: 2, Prices: 4}, second)

	vip, err := svc.Get(ctx, "vip", "Nigeria")
	require.NoError(t, err)
	require.True(t, vip.RequiresActivation)
	prices, err := svc.ListPrices(ctx, vip.ID)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.NotNil(t, prices[0].ActivationFee)
	require.Equal(t, "10000", prices[0].ActivationFee.String())

	daily, err := svc.Get(ctx, "daily_2_odds", "Ghana")
	require.NoError(t, err)
	require.NotNil(t, daily.Quote)
	require.Equal(t, "GHS", daily.Quote.Currency)
}
