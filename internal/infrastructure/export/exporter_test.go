package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleProducts() []domain.Product {
	desc := "Pan de molde, integral"
	exp := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	img := "/uploads/abc.png"

	return []domain.Product{
		{ID: 1, Name: "Pan", Description: &desc, Price: decimal.RequireFromString("1.5"), MinStock: 2, CurrentStock: 8, ExpirationDate: &exp, Category: "Panaderia", ImageURL: &img},
		{ID: 2, Name: "Agua", Price: decimal.RequireFromString("0.99"), Category: "Other"},
	}
}

func TestExporterCSV(t *testing.T) {
	data, err := NewExporter().CSV(sampleProducts())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(headers, ","), lines[0])
	assert.Equal(t, `1,Pan,"Pan de molde, integral",1.50,2,8,2026-12-31,Panaderia,/uploads/abc.png`, lines[1])
	assert.Equal(t, `2,Agua,,0.99,0,0,,Other,`, lines[2])
}

func TestExporterCSVEmptyCatalog(t *testing.T) {
	data, err := NewExporter().CSV(nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(headers, ","), strings.TrimSpace(string(data)))
}

func TestExporterXLSX(t *testing.T) {
	data, err := NewExporter().XLSX(sampleProducts())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "Pan", rows[1][1])
	assert.Equal(t, "1.5", rows[1][3])
	assert.Equal(t, "2026-12-31", rows[1][6])
	assert.Equal(t, "Agua", rows[2][1])
}
