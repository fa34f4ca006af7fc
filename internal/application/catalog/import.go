package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/catalog"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/csvimport"
	"go.uber.org/zap"
)

// MaxImportRows bounds the size of one product upload
const MaxImportRows = 5000

// Import columns
const (
	columnSKU       = "sku"
	columnEAN       = "ean"
	columnName      = "name"
	columnPrice     = "price"
	columnCurrency  = "currency"
	columnStock     = "stock"
	columnThreshold = "low_stock_threshold"
)

var importAliases = map[string]string{
	"artikelnummer":  columnSKU,
	"naam":           columnName,
	"titel":          columnName,
	"title":          columnName,
	"prijs":          columnPrice,
	"valuta":         columnCurrency,
	"voorraad":       columnStock,
	"stock_quantity": columnStock,
	"quantity":       columnStock,
	"barcode":        columnEAN,
	"minimum":        columnThreshold,
}

// ErrImportFile is returned when the upload cannot be read as a product list
var ErrImportFile = shared.NewDomainError("INVALID_IMPORT_FILE", "The file is not a readable product list")

// ImportCSV creates or updates products from a spreadsheet export keyed by SKU.
// Rows are applied independently: a bad row is reported and skipped.
// Stock is overwritten when the file has a stock column.
func (s *ProductService) ImportCSV(ctx context.Context, r io.Reader) (*csvimport.Report, error) {
	parser, err := csvimport.NewParser(r, csvimport.WithAliases(importAliases))
	if err != nil {
		return nil, shared.NewDomainError(ErrImportFile.Code, err.Error())
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, shared.NewDomainError(ErrImportFile.Code, err.Error())
	}
	if missing := parser.Missing(columnSKU); len(missing) > 0 {
		return nil, shared.NewDomainError(ErrImportFile.Code, "missing column: "+strings.Join(missing, ", "))
	}

	report := &csvimport.Report{}
	seen := make(map[string]int)
	for {
		row, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, shared.NewDomainError(ErrImportFile.Code, err.Error())
		}
		report.Rows++
		if report.Rows > MaxImportRows {
			return nil, shared.NewDomainError(ErrImportFile.Code, fmt.Sprintf("at most %d rows per upload", MaxImportRows))
		}

		sku := row.Get(columnSKU)
		if sku == "" {
			report.Add(row.Line, columnSKU, csvimport.CodeRequired, "SKU is required", "")
			continue
		}
		if first, dup := seen[sku]; dup {
			report.Add(row.Line, columnSKU, csvimport.CodeDuplicate, fmt.Sprintf("SKU also on row %d", first), sku)
			continue
		}
		seen[sku] = row.Line

		created, err := s.importRow(ctx, row, report)
		if err != nil {
			var domainErr *shared.DomainError
			if !errors.As(err, &domainErr) {
				return nil, err
			}
			report.Add(row.Line, "", csvimport.CodeRejected, domainErr.Message, sku)
			continue
		}
		switch {
		case created == nil:
		case *created:
			report.Created++
		default:
			report.Updated++
		}
	}

	s.logger.Info("Products imported",
		zap.Int("rows", report.Rows),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed()),
	)
	return report, nil
}

// importRow applies one row. It returns nil when a cell error was reported.
func (s *ProductService) importRow(ctx context.Context, row *csvimport.Row, report *csvimport.Report) (*bool, error) {
	price, ok := parseDecimal(row, columnPrice, report)
	if !ok {
		return nil, nil
	}
	stock, ok := parseCount(row, columnStock, report)
	if !ok {
		return nil, nil
	}
	threshold, ok := parseCount(row, columnThreshold, report)
	if !ok {
		return nil, nil
	}

	sku := row.Get(columnSKU)
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	created := product == nil
	var wasLow bool
	if created {
		in := catalog.ProductInput{
			SKU:               sku,
			EAN:               row.Get(columnEAN),
			Name:              row.Get(columnName),
			Price:             decimalOr(price),
			Currency:          row.Get(columnCurrency),
			StockQuantity:     intOr(stock, 0),
			LowStockThreshold: intOr(threshold, 0),
		}
		if product, err = catalog.NewProduct(in, s.rules); err != nil {
			return nil, err
		}
	} else {
		wasLow = product.IsLowStock()
		in := catalog.ProductInput{
			SKU:               product.SKU,
			EAN:               cellOr(row, columnEAN, product.EAN),
			Name:              cellOr(row, columnName, product.Name),
			Description:       product.Description,
			Price:             product.Price,
			Currency:          cellOr(row, columnCurrency, product.Currency),
			LowStockThreshold: intOr(threshold, product.LowStockThreshold),
		}
		if price != nil {
			in.Price = *price
		}
		if err := product.Update(in, s.rules); err != nil {
			return nil, err
		}
	}

	delta := 0
	if !created && stock != nil {
		delta = *stock - product.StockQuantity
		if err := product.SetStock(*stock); err != nil {
			return nil, err
		}
	}
	save := s.productRepo.SaveWithLock
	if created {
		save = s.productRepo.Save
	}
	if err := save(ctx, product); err != nil {
		return nil, err
	}
	if delta != 0 {
		s.publishStockEvents(ctx, product, delta, wasLow)
	}
	return &created, nil
}

func parseDecimal(row *csvimport.Row, column string, report *csvimport.Report) (*decimal.Decimal, bool) {
	raw := row.Get(column)
	if raw == "" {
		return nil, true
	}
	normalized := raw
	if !strings.Contains(raw, ".") {
		normalized = strings.Replace(raw, ",", ".", 1)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		report.Add(row.Line, column, csvimport.CodeInvalid, "not a number", raw)
		return nil, false
	}
	return &d, true
}

func parseCount(row *csvimport.Row, column string, report *csvimport.Report) (*int, bool) {
	raw := row.Get(column)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		report.Add(row.Line, column, csvimport.CodeInvalid, "must be a whole number of zero or more", raw)
		return nil, false
	}
	return &n, true
}

func cellOr(row *csvimport.Row, column, fallback string) string {
	if v := row.Get(column); v != "" {
		return v
	}
	return fallback
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func decimalOr(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
