package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", WithBaseURL(server.URL), WithRateLimit(1000))
}

func TestClient_GetEOD(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/AAPL.US", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "a", r.URL.Query().Get("order"))
		w.Write([]byte(`[
			{"date":"2024-01-02","open":1,"high":2,"low":0.5,"close":1.5,"adjusted_close":1.5,"volume":100},
			{"date":"2024-01-03","open":1.5,"high":2.5,"low":1,"close":2,"adjusted_close":2,"volume":200}
		]`))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := client.GetEOD(context.Background(), "AAPL.US", WithDateRange(from, time.Time{}))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, int64(200), bars[1].Volume)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Ticker Not Found."))
	})

	_, err := client.GetFundamentals(context.Background(), "NOPE.US")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "/fundamentals/NOPE.US", apiErr.Endpoint)
	assert.Equal(t, "Ticker Not Found.", apiErr.Message)
}

func TestClient_TooManyRequests(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetNews(context.Background(), []string{"AAPL.US"})
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 7*time.Second, rateErr.RetryAfter)
}

func TestClient_GetNews(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL.US", r.URL.Query().Get("s"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"date":"2024-03-01T14:30:00+00:00","title":"Apple ships","link":"https://www.reuters.com/a"}]`))
	})

	news, err := client.GetNews(context.Background(), []string{"AAPL.US"}, WithLimit(5))
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), news[0].Date.UTC())
}

func TestClient_GetOptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/options/AAPL.US", r.URL.Path)
		w.Write([]byte(`{"code":"AAPL.US","lastTradePrice":"190.5","data":[
			{"expirationDate":"2024-02-16","options":{"CALL":[{"strike":200,"volume":null,"openInterest":"12"}]}},
			{"expirationDate":"2024-01-19","options":{"PUT":[{"strike":180,"volume":5,"impliedVolatility":31.2}]}}
		]}`))
	})

	chain, err := client.GetOptions(context.Background(), "AAPL.US")
	require.NoError(t, err)
	assert.Equal(t, 190.5, *chain.LastTradePrice.Ptr())

	expiries := chain.SortedExpiries()
	require.Len(t, expiries, 2)
	assert.Equal(t, "2024-01-19", expiries[0].ExpirationDate)
	call := expiries[1].Options["CALL"][0]
	assert.False(t, call.Volume.Valid)
	assert.Equal(t, int64(12), call.OpenInterest.Int())
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"number", `12.5`, floatPtr(12.5)},
		{"numeric string", `"0.25"`, floatPtr(0.25)},
		{"null", `null`, nil},
		{"NA", `"NA"`, nil},
		{"None", `"None"`, nil},
		{"empty", `""`, nil},
		{"garbage", `"abc"`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.want, n.Ptr())
		})
	}
}

func TestNumber_NonZero(t *testing.T) {
	assert.Nil(t, Number{Value: 0, Valid: true}.NonZero())
	assert.Equal(t, 3.0, *Number{Value: 3, Valid: true}.NonZero())
}

func TestStatementRow_Value(t *testing.T) {
	var stmt FinancialStatement
	require.NoError(t, json.Unmarshal([]byte(`{"quarterly":{
		"2023-12-31":{"totalRevenue":"1000.00","netIncome":null},
		"2024-03-31":{"totalRevenue":1200,"netIncome":"150"}
	}}`), &stmt))

	assert.Equal(t, []string{"2024-03-31", "2023-12-31"}, Periods(stmt.Quarterly))
	latest := Latest(stmt.Quarterly)
	assert.Equal(t, 1200.0, *latest.Value("totalRevenue"))
	assert.Equal(t, 150.0, *latest.Value("netIncome"))
	assert.Nil(t, stmt.Quarterly["2023-12-31"].Value("netIncome"))
	assert.Nil(t, latest.Value("missing"))
	assert.Nil(t, Latest(nil))
}

func floatPtr(v float64) *float64 {
	return &v
}
