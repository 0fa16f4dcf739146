package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
)

// ExportUseCase выгружает каталог в файл.
type ExportUseCase struct {
	productRepo ProductRepository
	exporter    Exporter
	now         func() time.Time
}

func NewExportUC(productRepo ProductRepository, exporter Exporter) *ExportUseCase {
	return &ExportUseCase{
		productRepo: productRepo,
		exporter:    exporter,
		now:         time.Now,
	}
}

// Export формирует XLSX или CSV со всеми товарами. Только для администратора.
func (x *ExportUseCase) Export(ctx context.Context, principal *domain.Principal, format string) (*ExportRes, error) {
	const op = "ExportUseCase.Export"

	if err := requireAdmin(principal); err != nil {
		return nil, e.Wrap(op, err)
	}

	f := ExportFormat(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = ExportXLSX
	}
	if f != ExportXLSX && f != ExportCSV {
		return nil, e.Wrap(op, e.ErrUnsupportedExportFormat)
	}

	products, err := x.productRepo.ListAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var (
		data        []byte
		contentType string
	)
	switch f {
	case ExportXLSX:
		data, err = x.exporter.XLSX(products)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportCSV:
		data, err = x.exporter.CSV(products)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &ExportRes{
		Filename:    fmt.Sprintf("productos_%s.%s", x.now().Format("20060102"), f),
		ContentType: contentType,
		Data:        data,
	}, nil
}
