// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/catalogsearch/core"
)

// IDColumn is the only column a catalog file must have.
const IDColumn = "Uniq Id"

// ErrMissingIDColumn is returned when the header lacks IDColumn.
var ErrMissingIDColumn = errors.New("catalog header has no " + IDColumn + " column")

var columns = map[string]func(*core.ProductRecord, string){
	IDColumn:                func(r *core.ProductRecord, v string) { r.ProductID = v },
	"Product Name":          func(r *core.ProductRecord, v string) { r.ProductName = v },
	"Brand Name":            func(r *core.ProductRecord, v string) { r.BrandName = v },
	"Asin":                  func(r *core.ProductRecord, v string) { r.Asin = v },
	"Category":              func(r *core.ProductRecord, v string) { r.Category = v },
	"Upc Ean Code":          func(r *core.ProductRecord, v string) { r.UpcEanCode = v },
	"List Price":            func(r *core.ProductRecord, v string) { r.ListPrice = v },
	"Selling Price":         func(r *core.ProductRecord, v string) { r.SellingPrice = v },
	"Quantity":              func(r *core.ProductRecord, v string) { r.Quantity = v },
	"Model Number":          func(r *core.ProductRecord, v string) { r.ModelNumber = v },
	"About Product":         func(r *core.ProductRecord, v string) { r.AboutProduct = v },
	"Product Specification": func(r *core.ProductRecord, v string) { r.ProductSpecification = v },
	"Technical Details":     func(r *core.ProductRecord, v string) { r.TechnicalDetails = v },
	"Shipping Weight":       func(r *core.ProductRecord, v string) { r.ShippingWeight = v },
	"Product Dimensions":    func(r *core.ProductRecord, v string) { r.ProductDimensions = v },
	"Image":                 func(r *core.ProductRecord, v string) { r.Image = v },
	"Variants":              func(r *core.ProductRecord, v string) { r.Variants = v },
	"Sku":                   func(r *core.ProductRecord, v string) { r.Sku = v },
	"Product Url":           func(r *core.ProductRecord, v string) { r.ProductURL = v },
	"Stock":                 func(r *core.ProductRecord, v string) { r.Stock = v },
	"Product Details":       func(r *core.ProductRecord, v string) { r.ProductDetails = v },
	"Dimensions":            func(r *core.ProductRecord, v string) { r.Dimensions = v },
	"Color":                 func(r *core.ProductRecord, v string) { r.Color = v },
	"Ingredients":           func(r *core.ProductRecord, v string) { r.Ingredients = v },
	"Direction To Use":      func(r *core.ProductRecord, v string) { r.DirectionToUse = v },
	"Is Amazon Seller":      func(r *core.ProductRecord, v string) { r.IsAmazonSeller = v },
	"Size Quantity Variant": func(r *core.ProductRecord, v string) { r.SizeQuantityVariant = v },
	"Product Description":   func(r *core.ProductRecord, v string) { r.ProductDescription = v },
}

// RowError is a row that could not be parsed.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// RowErrors collects per-row parse failures. Reading continues past them.
type RowErrors []RowError

// Err joins the row errors, or returns nil when there are none.
func (re RowErrors) Err() error {
	if len(re) == 0 {
		return nil
	}
	errs := make([]error, len(re))
	for i, e := range re {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ReadCSV maps each row onto a ProductRecord by header name. Unknown
// columns are ignored and absent ones stay empty. A malformed row is
// reported in RowErrors and skipped; the error return is reserved for an
// unreadable input or a header without IDColumn.
func ReadCSV(r io.Reader) ([]core.ProductRecord, RowErrors, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrMissingIDColumn
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog header: %w", err)
	}

	setters := make([]func(*core.ProductRecord, string), len(header))
	hasID := false
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		setters[i] = columns[name]
		hasID = hasID || name == IDColumn
	}
	if !hasID {
		return nil, nil, ErrMissingIDColumn
	}

	var (
		records []core.ProductRecord
		rowErrs RowErrors
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrs = append(rowErrs, RowError{Line: parseErr.StartLine, Err: parseErr.Err})
				continue
			}
			return records, rowErrs, fmt.Errorf("read catalog: %w", err)
		}

		var record core.ProductRecord
		for i, value := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&record, strings.TrimSpace(value))
			}
		}
		records = append(records, record)
	}
	return records, rowErrs, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) ([]core.ProductRecord, RowErrors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
