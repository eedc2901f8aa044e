package sales

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Store holds the loaded dataset. It is built once at startup and only
// read afterwards, so concurrent pipeline runs need no locking.
type Store struct {
	records  []SalesRecord
	dropped  int
	regions  []string
	products []string
	minDate  time.Time
	maxDate  time.Time
}

// dateLayouts are tried in order when parsing the Date column. Rows
// whose date matches none of them are dropped, not errored.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NewStore builds a Store from already-parsed records. The dropped
// count records how many source rows were discarded during parsing.
func NewStore(records []SalesRecord, dropped int) *Store {
	s := &Store{
		records: records,
		dropped: dropped,
	}

	regionSet := make(map[string]struct{})
	productSet := make(map[string]struct{})
	for i, r := range records {
		regionSet[r.Region] = struct{}{}
		productSet[r.Product] = struct{}{}
		if i == 0 || r.Date.Before(s.minDate) {
			s.minDate = r.Date
		}
		if i == 0 || r.Date.After(s.maxDate) {
			s.maxDate = r.Date
		}
	}
	for region := range regionSet {
		s.regions = append(s.regions, region)
	}
	for product := range productSet {
		s.products = append(s.products, product)
	}
	sort.Strings(s.regions)
	sort.Strings(s.products)

	return s
}

// Records returns the loaded rows in source order. Callers must not
// modify the returned slice.
func (s *Store) Records() []SalesRecord { return s.records }

// Dropped returns the number of source rows discarded for unparsable
// dates or amounts. Exposed for diagnostics.
func (s *Store) Dropped() int { return s.dropped }

// Regions returns the distinct regions, sorted.
func (s *Store) Regions() []string { return s.regions }

// Products returns the distinct products, sorted.
func (s *Store) Products() []string { return s.products }

// DateRange returns the earliest and latest record dates. Both are
// zero when the store is empty.
func (s *Store) DateRange() (time.Time, time.Time) { return s.minDate, s.maxDate }

// Len returns the number of loaded records.
func (s *Store) Len() int { return len(s.records) }

// columnIndex maps the header row to the positions of the four columns
// the pipeline consumes. Matching is case-insensitive.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			idx["date"] = i
		case "region":
			idx["region"] = i
		case "product":
			idx["product"] = i
		case "sales", "amount":
			idx["sales"] = i
		}
	}
	for _, required := range []string{"date", "region", "product", "sales"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int) (SalesRecord, bool) {
	get := func(key string) string {
		i := idx[key]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, ok := parseDate(get("date"))
	if !ok {
		return SalesRecord{}, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(get("sales"), ",", ""), 64)
	if err != nil {
		return SalesRecord{}, false
	}

	return SalesRecord{
		Date:    date,
		Region:  get("region"),
		Product: get("product"),
		Amount:  amount,
	}, true
}

// LoadCSV reads a dataset from a CSV file with a header row containing
// Date, Region, Product, and Sales columns.
func LoadCSV(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// Strip a UTF-8 BOM if present.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []SalesRecord
	dropped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			continue
		}
		rec, ok := parseRow(row, idx)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	return NewStore(records, dropped), nil
}

// LoadExcel reads a dataset from an xlsx workbook. When sheet is empty
// the first sheet is used.
func LoadExcel(path, sheet string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var records []SalesRecord
	dropped := 0
	for _, row := range rows[1:] {
		rec, ok := parseRow(row, idx)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	return NewStore(records, dropped), nil
}
