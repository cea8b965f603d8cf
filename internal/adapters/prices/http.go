package prices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/srujanra/apps-dash/internal/domain"
)

const (
	// Descargas de históricos: no hace falta más de 2 req/s.
	httpRatePerSec = 2
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
	maxBodyBytes   = 64 << 20
)

// ErrBodyTooLarge indica que la respuesta supera el tamaño máximo aceptado.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPSource implementa ports.PriceSource descargando el CSV desde una URL,
// con rate limiting y retries.
type HTTPSource struct {
	http      *http.Client
	url       string
	limiter   *rate.Limiter
	retryWait time.Duration
	maxBody   int64
}

// NewHTTPSource crea una fuente HTTP para la URL dada.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		http:      &http.Client{Timeout: 30 * time.Second},
		url:       url,
		limiter:   rate.NewLimiter(httpRatePerSec, 1),
		retryWait: baseRetryWait,
		maxBody:   maxBodyBytes,
	}
}

// LoadSeries descarga y parsea la serie.
func (s *HTTPSource) LoadSeries(ctx context.Context) (*domain.PriceSeries, error) {
	body, err := s.getWithRetry(ctx)
	if err != nil {
		return nil, fmt.Errorf("prices.HTTPSource: %s: %w", s.url, err)
	}
	series, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("prices.HTTPSource: parse: %w", err)
	}
	slog.Info("price series downloaded", "url", s.url, "observations", series.Len(), "bytes", len(body))
	return series, nil
}

// getWithRetry hace el GET con backoff exponencial, respetando el contexto.
func (s *HTTPSource) getWithRetry(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := s.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			slog.Warn("price download failed, retrying", "status", resp.StatusCode, "attempt", attempt+1)
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			s.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(msg))
		}

		// Un byte de más delata el truncado: no se parsea una última fila cortada.
		body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > s.maxBody {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, s.maxBody)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

func (s *HTTPSource) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * s.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
