package feed

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes a JSON value that feeds emit either as a number or as a
// quoted decimal string ("12.00"). Anything unparseable decodes as zero
// rather than failing the record.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Variant is the subset of a feed variant the loader cares about.
type Variant struct {
	Price Number `json:"price"`
}

// Record is one decoded product object from the feed. Field names follow the
// feed format; older feeds use title/body_html/product_type where newer ones
// use name/description/category, so accessors resolve the fallbacks.
type Record struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Title           string    `json:"title"`
	Handle          string    `json:"handle"`
	Description     string    `json:"description"`
	BodyHTML        string    `json:"body_html"`
	Vendor          string    `json:"vendor"`
	Category        string    `json:"category"`
	ProductType     string    `json:"product_type"`
	Tags            string    `json:"tags"`
	Price           Number    `json:"price"`
	CompareAtPrice  *Number   `json:"compare_at_price"`
	BestsellerScore *Number   `json:"bestseller_score"`
	SourceDomain    string    `json:"source_domain"`
	SourceURL       string    `json:"source_url"`
	Variants        []Variant `json:"variants"`

	// Raw is the full decoded object, retained alongside the relational
	// columns for fields the model does not flatten.
	Raw map[string]interface{} `json:"-"`
}

// DisplayName returns the record's name, falling back to the legacy title.
func (r *Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Title
}

// CategoryName returns the record's category, falling back to product_type.
func (r *Record) CategoryName() string {
	if r.Category != "" {
		return r.Category
	}
	return r.ProductType
}

// Body returns the record's description, falling back to body_html.
func (r *Record) Body() string {
	if r.Description != "" {
		return r.Description
	}
	return r.BodyHTML
}

// CanonicalPrice derives the price to persist: the minimum price across the
// variant list when present, else the record's own price, else zero.
func (r *Record) CanonicalPrice() float64 {
	if len(r.Variants) == 0 {
		return float64(r.Price)
	}
	min := float64(r.Variants[0].Price)
	for _, v := range r.Variants[1:] {
		if float64(v.Price) < min {
			min = float64(v.Price)
		}
	}
	return min
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	// Second decode keeps the untyped payload; it cannot fail if the
	// first one succeeded.
	_ = json.Unmarshal(data, &rec.Raw)
	return &rec, nil
}
