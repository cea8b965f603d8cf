package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestSource(url string) *HTTPSource {
	s := NewHTTPSource(url)
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.retryWait = time.Millisecond
	return s
}

func TestHTTPSource_LoadSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	s, err := newTestSource(srv.URL).LoadSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(sampleCSV))
		}
	}))
	defer srv.Close()

	s, err := newTestSource(srv.URL).LoadSeries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSource_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadSeries(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestHTTPSource_ClientErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such series", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadSeries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSource_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not,a,series\n"))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).LoadSeries(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	s := newTestSource(srv.URL)
	s.maxBody = int64(len(sampleCSV)) - 3

	_, err := s.LoadSeries(context.Background())
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	s.maxBody = int64(len(sampleCSV))
	series, err := s.LoadSeries(context.Background())
	require.NoError(t, err)
	assert.Positive(t, series.Len())
}
