package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/pkg/config"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result payload
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", payload{Name: "x"}, time.Minute))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

func TestCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "factorlab")

	mock.ExpectGet("factorlab:cache:k1").RedisNil()

	var result payload
	found, err := cache.Get(context.Background(), "k1", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetThenGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "factorlab")

	raw := `{"name":"close","count":3}`
	mock.ExpectSet("factorlab:cache:k2", []byte(raw), time.Hour).SetVal("OK")
	mock.ExpectGet("factorlab:cache:k2").SetVal(raw)

	require.NoError(t, cache.Set(context.Background(), "k2", payload{Name: "close", Count: 3}, time.Hour))

	var result payload
	found, err := cache.Get(context.Background(), "k2", &result)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "close", Count: 3}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "factorlab")

	mock.ExpectGet("factorlab:cache:k3").SetErr(assert.AnError)

	var result payload
	_, err := cache.Get(context.Background(), "k3", &result)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPanelKey(t *testing.T) {
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "panel:cap_D:close:20240102:20240628:005930,000660",
		PanelKey("cap_D", "close", from, to, []string{"005930", "000660"}))
	assert.Equal(t, "panel:default:close:20240102:20240628:005930",
		PanelKey("", "close", from, to, []string{"005930"}))
	assert.NotEqual(t,
		PanelKey("cap_D", "market_cap", from, to, []string{"005930"}),
		PanelKey("cap_M", "market_cap", from, to, []string{"005930"}))
}
