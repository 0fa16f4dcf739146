package export

import (
	"bytes"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/gocarina/gocsv"
	"github.com/jimlawless/whereami"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName  = "Productos"
	dateLayout = "2006-01-02"
)

// productRow — строка выгрузки. Теги csv задают заголовки CSV, они же используются в XLSX.
type productRow struct {
	ID             int64  `csv:"id"`
	Name           string `csv:"nombre"`
	Description    string `csv:"descripcion"`
	Price          string `csv:"precio"`
	MinStock       int    `csv:"stock_minimo"`
	CurrentStock   int    `csv:"stock_actual"`
	ExpirationDate string `csv:"fecha_vencimiento"`
	Category       string `csv:"categoria"`
	ImageURL       string `csv:"imagen_url"`
}

var headers = []string{
	"id", "nombre", "descripcion", "precio", "stock_minimo",
	"stock_actual", "fecha_vencimiento", "categoria", "imagen_url",
}

// Exporter выгружает каталог в XLSX (excelize) и CSV (gocsv).
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (x *Exporter) CSV(products []domain.Product) ([]byte, error) {
	rows := toRows(products)

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

func (x *Exporter) XLSX(products []domain.Product) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	for i, p := range products {
		price, _ := p.Price.Round(domain.PriceScale).Float64()
		row := toRow(&p)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		// цена пишется числом, чтобы в таблице работали формулы
		if err := sw.SetRow(cell, []any{
			row.ID, row.Name, row.Description, price, row.MinStock,
			row.CurrentStock, row.ExpirationDate, row.Category, row.ImageURL,
		}); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return buf.Bytes(), nil
}

func toRows(products []domain.Product) []*productRow {
	rows := make([]*productRow, 0, len(products))
	for i := range products {
		rows = append(rows, toRow(&products[i]))
	}

	return rows
}

func toRow(p *domain.Product) *productRow {
	row := &productRow{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price.StringFixed(domain.PriceScale),
		MinStock:     p.MinStock,
		CurrentStock: p.CurrentStock,
		Category:     p.Category,
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.ExpirationDate != nil {
		row.ExpirationDate = p.ExpirationDate.Format(dateLayout)
	}
	if p.ImageURL != nil {
		row.ImageURL = *p.ImageURL
	}

	return row
}
