package kakao

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsight/visitlog/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func searchResponse(docs ...Document) CategorySearchResponse {
	return CategorySearchResponse{
		Meta:      Meta{TotalCount: len(docs), PageableCount: len(docs), IsEnd: true},
		Documents: docs,
	}
}

func TestSearchCategory_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/local/search/category.json", r.URL.Path)
		assert.Equal(t, "KakaoAK test-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "SW8", q.Get("category_group_code"))
		assert.Equal(t, "126.978", q.Get("x"))
		assert.Equal(t, "37.5665", q.Get("y"))
		assert.Equal(t, "1000", q.Get("radius"))
		assert.Equal(t, "distance", q.Get("sort"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "15", q.Get("size"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse(
			Document{ID: "1", PlaceName: "시청역", CategoryGroupCode: "SW8", Distance: "230"},
			Document{ID: "2", PlaceName: "을지로입구역", CategoryGroupCode: "SW8", Distance: "540"},
		))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)

	require.NoError(t, err)
	require.Len(t, resp.Documents, 2)

	nearest, ok := resp.Nearest()
	require.True(t, ok)
	assert.Equal(t, "시청역", nearest.PlaceName)

	m, err := nearest.DistanceMeters()
	require.NoError(t, err)
	assert.Equal(t, 230, m)
}

func TestSearchCategory_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse())
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := client.SearchCategory(context.Background(), CategoryBank, 126.978, 37.5665, 500)

	require.NoError(t, err)
	assert.Empty(t, resp.Documents)

	_, ok := resp.Nearest()
	assert.False(t, ok)
}

func TestSearchCategory_RetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(searchResponse(Document{ID: "1", PlaceName: "GS25", Distance: "80"}))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	resp, err := client.SearchCategory(context.Background(), CategoryConvenienceStore, 126.978, 37.5665, 500)

	require.NoError(t, err)
	assert.Len(t, resp.Documents, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearchCategory_BadRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad category", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.SearchCategory(context.Background(), CategoryCode("NOPE"), 126.978, 37.5665, 500)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchCategory_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(4), calls.Load())
}

func TestSearchCategory_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(searchResponse())
	}))
	defer srv.Close()

	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}),
	)
	_, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSearchCategory_RateLimitExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse())
	}))
	defer srv.Close()

	// A burst of 10 permits and a near-zero wait window: the 11th call in the
	// window cannot get a permit in time.
	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(10, 10),
		WithAcquireTimeout(10*time.Millisecond),
		WithRetryConfig(fastRetry()),
	)

	for i := 0; i < 10; i++ {
		_, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)
		require.NoError(t, err, "call %d", i+1)
	}

	_, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSearchCategory_RateLimitWaitsForRefill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse())
	}))
	defer srv.Close()

	// Fast refill and a generous wait window: the call after the burst waits
	// for the next permit instead of failing.
	client := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(100, 2),
		WithAcquireTimeout(time.Second),
		WithRetryConfig(fastRetry()),
	)

	for i := 0; i < 5; i++ {
		_, err := client.SearchCategory(context.Background(), CategorySubway, 126.978, 37.5665, 1000)
		require.NoError(t, err, "call %d", i+1)
	}
}

func TestDocument_DistanceMeters_Invalid(t *testing.T) {
	_, err := Document{Distance: "near"}.DistanceMeters()
	assert.Error(t, err)
}

func TestCategoryCode_Label(t *testing.T) {
	assert.Equal(t, "지하철역", CategorySubway.Label())
	assert.Equal(t, "편의점", CategoryConvenienceStore.Label())
	assert.Equal(t, "ZZ9", CategoryCode("ZZ9").Label())
}
