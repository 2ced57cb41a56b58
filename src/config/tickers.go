package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"raindrop-charts/src/models"
)

// -----------------------------------------------------------------------------

// LoadTickers reads a "Company,Ticker" CSV catalog. Column order follows the
// header; rows with an empty ticker are skipped.
func LoadTickers(path string) ([]models.MTicker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tickers file '%s': %w", path, err)
	}
	defer f.Close()
	return ParseTickers(f)
}

// -----------------------------------------------------------------------------

func ParseTickers(r io.Reader) ([]models.MTicker, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read tickers header: %w", err)
	}

	companyCol, tickerCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "company":
			companyCol = i
		case "ticker":
			tickerCol = i
		}
	}
	if companyCol < 0 || tickerCol < 0 {
		return nil, fmt.Errorf("tickers header must contain Company and Ticker, got %v", header)
	}

	var tickers []models.MTicker
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tickers row: %w", err)
		}
		if len(row) <= companyCol || len(row) <= tickerCol {
			continue
		}
		ticker := strings.TrimSpace(row[tickerCol])
		if ticker == "" {
			continue
		}
		tickers = append(tickers, models.MTicker{
			Company: strings.TrimSpace(row[companyCol]),
			Ticker:  strings.ToUpper(ticker),
		})
	}
	return tickers, nil
}

// -----------------------------------------------------------------------------

// Catalog returns the inline tickers followed by the ones from TickersFile,
// without duplicates.
func (c *Config) Catalog() ([]models.MTicker, error) {
	seen := make(map[string]bool)
	var out []models.MTicker
	add := func(list []models.MTicker) {
		for _, t := range list {
			key := strings.ToUpper(t.Ticker)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if t.Company == "" {
				t.Company = key
			}
			t.Ticker = key
			out = append(out, t)
		}
	}

	add(c.Tickers)
	if c.TickersFile != "" {
		fromFile, err := LoadTickers(c.TickersFile)
		if err != nil {
			return out, err
		}
		add(fromFile)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// ResolveTicker maps a company name or ticker to a ticker symbol.
func ResolveTicker(catalog []models.MTicker, value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, t := range catalog {
		if strings.EqualFold(t.Ticker, value) || strings.EqualFold(t.Company, value) {
			return t.Ticker, true
		}
	}
	return "", false
}
