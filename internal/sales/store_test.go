package sales

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTempCSV(t, `Date,Region,Product,Sales
2023-01-01,East,Widget,100
2023-02-01,East,Widget,150.5
2023-03-01,West,Gadget,200
`)

	store, err := LoadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, 3, store.Len())
	assert.Zero(t, store.Dropped())
	assert.Equal(t, []string{"East", "West"}, store.Regions())
	assert.Equal(t, []string{"Gadget", "Widget"}, store.Products())

	minDate, maxDate := store.DateRange()
	assert.Equal(t, date(2023, 1, 1), minDate)
	assert.Equal(t, date(2023, 3, 1), maxDate)

	assert.Equal(t, 150.5, store.Records()[1].Amount)
}

func TestLoadCSVDropsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, `Date,Region,Product,Sales
2023-01-01,East,Widget,100
not-a-date,East,Widget,50
2023-02-01,East,Widget,nope
2023-03-01,East,Widget,200
`)

	store, err := LoadCSV(path)
	require.NoError(t, err)

	// Bad date and bad amount are dropped, not errored, and the drop
	// count stays observable for diagnostics.
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, store.Dropped())
}

func TestLoadCSVDateFormats(t *testing.T) {
	path := writeTempCSV(t, `Date,Region,Product,Sales
2023-01-15,East,Widget,10
2023/02/15,East,Widget,20
03/15/2023,East,Widget,30
`)

	store, err := LoadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	records := store.Records()
	assert.Equal(t, date(2023, 1, 15), records[0].Date)
	assert.Equal(t, date(2023, 2, 15), records[1].Date)
	assert.Equal(t, date(2023, 3, 15), records[2].Date)
}

func TestLoadCSVHeaderVariants(t *testing.T) {
	t.Run("amount alias and BOM", func(t *testing.T) {
		path := writeTempCSV(t, "\uFEFFdate,region,product,amount\n2023-01-01,East,Widget,100\n")

		store, err := LoadCSV(path)
		require.NoError(t, err)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeTempCSV(t, "Date,Region,Sales\n2023-01-01,East,100\n")

		_, err := LoadCSV(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "product")
	})
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestLoadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales_data.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Date", "Region", "Product", "Sales"},
		{"2023-01-01", "East", "Widget", "100"},
		{"bad-date", "East", "Widget", "50"},
		{"2023-02-01", "West", "Gadget", "75"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	store, err := LoadExcel(path, "")
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, store.Dropped())
	assert.Equal(t, []string{"East", "West"}, store.Regions())
}

func TestNewStoreEmpty(t *testing.T) {
	store := NewStore(nil, 0)

	assert.Zero(t, store.Len())
	assert.Empty(t, store.Regions())
	assert.Empty(t, store.Products())

	minDate, maxDate := store.DateRange()
	assert.True(t, minDate.IsZero())
	assert.True(t, maxDate.IsZero())
}
