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

package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// DefaultDimension is the embedding width produced by all-MiniLM-L6-v2 and
// compatible sentence-embedding models.
const DefaultDimension = 384

// DefaultTopK is the number of results returned when the caller does not ask
// for a specific count.
const DefaultTopK = 5

// ID is a 64-bit content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Metric names the similarity function used by a vector index.
type Metric string

const (
	// MetricCosine ranks by the cosine of the angle between vectors.
	MetricCosine Metric = "cosine"
)

// IndexSpec describes the shape of a vector index.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
}

// DefaultIndexSpec returns a cosine index of DefaultDimension with the given name.
func DefaultIndexSpec(name string) IndexSpec {
	return IndexSpec{
		Name:      name,
		Dimension: DefaultDimension,
		Metric:    MetricCosine,
	}
}

// ProductRecord is a single catalog row. Description holds the normalized
// text derived from the descriptive fields at ingestion time.
type ProductRecord struct {
	ProductID            string
	ProductName          string
	BrandName            string
	Asin                 string
	Category             string
	UpcEanCode           string
	ListPrice            string
	SellingPrice         string
	Quantity             string
	ModelNumber          string
	AboutProduct         string
	ProductSpecification string
	TechnicalDetails     string
	ShippingWeight       string
	ProductDimensions    string
	Image                string
	Variants             string
	Sku                  string
	ProductURL           string
	Stock                string
	ProductDetails       string
	Dimensions           string
	Color                string
	Ingredients          string
	DirectionToUse       string
	IsAmazonSeller       string
	SizeQuantityVariant  string
	ProductDescription   string

	Description string
}

// DescriptiveFields returns the free-text fields that feed Description, in
// concatenation order.
func (r *ProductRecord) DescriptiveFields() []string {
	return []string{
		r.AboutProduct,
		r.ProductDetails,
		r.ProductSpecification,
		r.TechnicalDetails,
	}
}

// Summary projects the record into a ranked search hit.
func (r *ProductRecord) Summary(score float32) ProductSummary {
	return ProductSummary{
		ProductID:    r.ProductID,
		ProductName:  r.ProductName,
		BrandName:    r.BrandName,
		Category:     r.Category,
		SellingPrice: r.SellingPrice,
		ListPrice:    r.ListPrice,
		Score:        score,
	}
}

// ProductSummary is the condensed view of a product returned by search.
type ProductSummary struct {
	ProductID    string
	ProductName  string
	BrandName    string
	Category     string
	SellingPrice string
	ListPrice    string
	Score        float32
}

// IndexEntry pairs a product with its embedding.
type IndexEntry struct {
	ProductID string
	Vector    []float32
}

// Match is a single hit from a similarity query.
type Match struct {
	ProductID string
	Score     float32
}
