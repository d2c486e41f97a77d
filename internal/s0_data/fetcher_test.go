package s0_data

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/pkg/logger"
	"github.com/wonny/factorlab/pkg/redis"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func TestPivot(t *testing.T) {
	points := []point{
		{Stock: "B", Date: day(1, 3), Value: 2},
		{Stock: "A", Date: day(1, 2), Value: 1},
		{Stock: "A", Date: day(1, 3).Add(15 * time.Hour), Value: 3},
		{Stock: "Z", Date: day(1, 4), Value: 9},
		{Stock: "A", Date: day(1, 3), Value: 4},
	}

	p, err := pivot([]string{"A", "B"}, points)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day(1, 2), day(1, 3), day(1, 4)}, p.Dates)
	assert.Equal(t, 1.0, p.At(0, 0))
	assert.True(t, math.IsNaN(p.At(0, 1)))
	assert.Equal(t, 4.0, p.At(1, 0), "later duplicate wins")
	assert.Equal(t, 2.0, p.At(1, 1))
	assert.True(t, math.IsNaN(p.At(2, 0)), "Z is outside the requested stocks")
}

func TestCalendarFill(t *testing.T) {
	points := []point{
		{Stock: "A", Date: day(1, 1), Value: 10},
		{Stock: "A", Date: day(1, 5), Value: 11},
		{Stock: "A", Date: day(1, 5), Value: 12},
		{Stock: "B", Date: day(1, 6), Value: 5},
	}

	p, err := calendarFill([]string{"A", "B"}, points, day(1, 1), day(1, 4), day(1, 7))
	require.NoError(t, err)

	require.Equal(t, 4, p.Len(), "every calendar day of [from, to]")
	assert.Equal(t, day(1, 4), p.Dates[0])
	assert.Equal(t, []float64{10, 12, 12, 12}, p.Column(0), "carried from before the range, duplicate keeps last")

	b := p.Column(1)
	assert.True(t, math.IsNaN(b[0]))
	assert.True(t, math.IsNaN(b[1]))
	assert.Equal(t, []float64{5, 5}, b[2:])
}

func TestPreviousPeriodEnd(t *testing.T) {
	dates := []time.Time{day(1, 30), day(1, 31), day(2, 1), day(2, 29), day(3, 1)}
	p, err := contracts.NewPanelFromRows(dates, []string{"A"}, [][]float64{{1}, {2}, {3}, {4}, {5}})
	require.NoError(t, err)

	out := previousPeriodEnd(p, contracts.FreqMonthly)
	col := out.Column(0)
	assert.True(t, math.IsNaN(col[0]))
	assert.True(t, math.IsNaN(col[1]), "January has no previous month-end in range")
	assert.Equal(t, []float64{2, 2, 4}, col[2:])

	assert.Same(t, p, previousPeriodEnd(p, contracts.FreqDaily))
}

func TestTrim(t *testing.T) {
	dates := []time.Time{day(1, 2), day(1, 3), day(1, 4)}
	p, err := contracts.NewPanelFromRows(dates, []string{"A"}, [][]float64{{1}, {2}, {3}})
	require.NoError(t, err)

	out := trim(p, day(1, 3), day(1, 3).Add(20*time.Hour))
	assert.Equal(t, []time.Time{day(1, 3)}, out.Dates)
	assert.Equal(t, 2.0, out.At(0, 0))
}

func TestPanelRepository_Fetch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	stocks := []string{"005930", "000660"}
	from, to := day(3, 4), day(3, 5)

	mock.ExpectQuery(`SELECT stock_code, trade_date, close_price::float8 AS value\s+FROM data.daily_prices`).
		WithArgs(stocks, from.Add(-lagWarmup), to, from).
		WillReturnRows(pgxmock.NewRows([]string{"stock_code", "trade_date", "value"}).
			AddRow("005930", day(3, 4), f(72000)).
			AddRow("000660", day(3, 4), f(150000)).
			AddRow("005930", day(3, 5), f(72500)))

	repo := NewPanelRepository(mock)
	p, err := repo.Fetch(context.Background(), stocks, from, to, FieldClose)
	require.NoError(t, err)

	assert.Equal(t, stocks, p.Stocks)
	assert.Equal(t, []float64{72000, 72500}, p.Column(0))
	assert.Equal(t, 150000.0, p.At(0, 1))
	assert.True(t, math.IsNaN(p.At(1, 1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPanelRepository_InvalidInput(t *testing.T) {
	repo := NewPanelRepository(nil)
	ctx := context.Background()

	_, err := repo.Fetch(ctx, []string{"A"}, day(1, 2), day(1, 3), "vwap")
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = repo.Fetch(ctx, nil, day(1, 2), day(1, 3), FieldClose)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = repo.Fetch(ctx, []string{"A"}, day(1, 3), day(1, 2), FieldClose)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestIndustryRepository_Industries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	stocks := []string{"005930", "035720", "999999"}
	mock.ExpectQuery(`FROM data.stocks`).
		WithArgs(stocks).
		WillReturnRows(pgxmock.NewRows([]string{"code", "sector"}).
			AddRow("005930", "전기전자").
			AddRow("035720", ""))

	industries, err := NewIndustryRepository(mock).Industries(context.Background(), stocks)
	require.NoError(t, err)

	assert.Equal(t, contracts.IndustryMap{"005930": "전기전자"}, industries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingFetcher struct {
	calls int
	panel *contracts.Panel
}

func (c *countingFetcher) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	c.calls++
	return c.panel, nil
}

func TestRouter(t *testing.T) {
	fake := &countingFetcher{}
	r := NewRouter().Handle(fake, FieldClose, FieldHigh)

	_, err := r.Fetch(context.Background(), []string{"A"}, day(1, 2), day(1, 3), FieldHigh)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)

	_, err = r.Fetch(context.Background(), []string{"A"}, day(1, 2), day(1, 3), "roe")
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestNewDefaultRouter_BadFrequency(t *testing.T) {
	_, err := NewDefaultRouter(nil, contracts.Frequency("Q"))
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestCachedFetcher_Disabled(t *testing.T) {
	fake := &countingFetcher{}
	cached := NewCachedFetcher(fake, redis.NewCache(nil, "factorlab"), time.Hour, logger.Nop(), "cap_D")

	for i := 0; i < 2; i++ {
		_, err := cached.Fetch(context.Background(), []string{"A"}, day(1, 2), day(1, 3), FieldClose)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.calls)
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	p, err := contracts.NewPanelFromRows([]time.Time{day(1, 2), day(1, 3)}, []string{"A", "B"},
		[][]float64{{1, math.NaN()}, {2, 3}})
	require.NoError(t, err)

	fake := &countingFetcher{panel: p}
	db, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(fake, redis.NewCache(redis.NewFromClient(db), "factorlab"), time.Hour, logger.Nop(), "cap_D")

	stocks := []string{"A", "B"}
	key := "factorlab:cache:" + redis.PanelKey("cap_D", FieldClose, day(1, 2), day(1, 3), stocks)
	encoded, err := json.Marshal(encodePanel(p))
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, encoded, time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(encoded))

	first, err := cached.Fetch(context.Background(), stocks, day(1, 2), day(1, 3), FieldClose)
	require.NoError(t, err)
	second, err := cached.Fetch(context.Background(), stocks, day(1, 2), day(1, 3), FieldClose)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls, "second fetch is served from redis")
	assert.Same(t, p, first)
	assert.Equal(t, p.Dates, second.Dates)
	assert.Equal(t, 2.0, second.At(1, 0))
	assert.True(t, math.IsNaN(second.At(0, 1)), "missing survives the round trip")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedFetcher_SourcesDoNotCollide(t *testing.T) {
	dates := []time.Time{day(1, 2), day(1, 3)}
	monthly, err := contracts.NewPanelFromRows(dates, []string{"A"}, [][]float64{{math.NaN()}, {110}})
	require.NoError(t, err)
	daily, err := contracts.NewPanelFromRows(dates, []string{"A"}, [][]float64{{100}, {110}})
	require.NoError(t, err)

	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "factorlab")
	monthlyRepo := &countingFetcher{panel: monthly}
	dailyRepo := &countingFetcher{panel: daily}
	monthlyCached := NewCachedFetcher(monthlyRepo, cache, time.Hour, logger.Nop(), "cap_M")
	dailyCached := NewCachedFetcher(dailyRepo, cache, time.Hour, logger.Nop(), "cap_D")

	stocks := []string{"A"}
	monthlyKey := "factorlab:cache:" + redis.PanelKey("cap_M", FieldMarketCap, day(1, 2), day(1, 3), stocks)
	dailyKey := "factorlab:cache:" + redis.PanelKey("cap_D", FieldMarketCap, day(1, 2), day(1, 3), stocks)
	require.NotEqual(t, monthlyKey, dailyKey)

	monthlyJSON, err := json.Marshal(encodePanel(monthly))
	require.NoError(t, err)
	dailyJSON, err := json.Marshal(encodePanel(daily))
	require.NoError(t, err)

	mock.ExpectGet(monthlyKey).RedisNil()
	mock.ExpectSet(monthlyKey, monthlyJSON, time.Hour).SetVal("OK")
	mock.ExpectGet(dailyKey).RedisNil()
	mock.ExpectSet(dailyKey, dailyJSON, time.Hour).SetVal("OK")

	_, err = monthlyCached.Fetch(context.Background(), stocks, day(1, 2), day(1, 3), FieldMarketCap)
	require.NoError(t, err)
	got, err := dailyCached.Fetch(context.Background(), stocks, day(1, 2), day(1, 3), FieldMarketCap)
	require.NoError(t, err)

	assert.Equal(t, 1, monthlyRepo.calls)
	assert.Equal(t, 1, dailyRepo.calls, "daily fetch is not served from the monthly entry")
	assert.Equal(t, []float64{100, 110}, got.Column(0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
