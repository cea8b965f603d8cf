package prices

// csv.go — lectura de la serie histórica en formato tabular:
//
//	date,SPX,EUR
//	2019-05-31,2752.06,1.1169
//	...
//
// Primera columna = fecha ISO, resto = una columna de precio por ticker.
// Las filas deben venir ordenadas por fecha, sin duplicados. Una celda vacía
// significa "sin dato" para ese ticker en esa fecha.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/srujanra/apps-dash/internal/domain"
)

// CSVFile implementa ports.PriceSource leyendo un archivo local.
type CSVFile struct {
	path string
}

// NewCSVFile crea una fuente sobre el archivo dado.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// LoadSeries lee y valida el archivo.
func (f *CSVFile) LoadSeries(_ context.Context) (*domain.PriceSeries, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("prices.LoadSeries: open %q: %w", f.path, err)
	}
	defer file.Close()

	series, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("prices.LoadSeries: %q: %w", f.path, err)
	}
	return series, nil
}

// ParseCSV parsea la serie desde r.
func ParseCSV(r io.Reader) (*domain.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a date column and at least one ticker, got %v", header)
	}
	if !strings.EqualFold(strings.TrimSpace(header[0]), "date") {
		return nil, fmt.Errorf("first column must be %q, got %q", "date", header[0])
	}

	tickers := make([]string, len(header)-1)
	for i, h := range header[1:] {
		tickers[i] = strings.TrimSpace(h)
	}

	var dates []time.Time
	cols := make([][]float64, len(tickers))
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		d, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, d)

		for i := range tickers {
			v := math.NaN()
			if raw := strings.TrimSpace(rec[i+1]); raw != "" {
				v, err = strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d, %s: parse %q: %w", line, tickers[i], raw, err)
				}
			}
			cols[i] = append(cols[i], v)
		}
	}

	prices := make(map[string][]float64, len(tickers))
	for i, t := range tickers {
		prices[t] = cols[i]
	}
	return domain.NewPriceSeries(dates, prices)
}

// parseDate acepta "2006-01-02" y, por compatibilidad con exports que
// incluyen hora, "2006-01-02 15:04:05" / RFC3339.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{domain.DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
