package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product represents a catalog entity loaded from a bulk feed.
// The id comes from the feed and stays stable across reimports (upsert by id).
// Price is mutated in place by the post-import pricing pass; everything else
// is immutable until the next import.
type Product struct {
	ID              int64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name            string   `json:"name" gorm:"not null"`
	Handle          string   `json:"handle" gorm:"index"`
	Description     string   `json:"description"`
	Price           float64  `json:"price" gorm:"not null;default:0;index"`
	CompareAtPrice  *float64 `json:"compareAtPrice,omitempty"`
	Category        string   `json:"category" gorm:"index"`
	Vendor          string   `json:"vendor" gorm:"index"`
	Tags            string   `json:"tags"`
	BestsellerScore *float64 `json:"bestsellerScore,omitempty"`
	SourceDomain    string   `json:"sourceDomain,omitempty"`
	SourceURL       string   `json:"sourceUrl,omitempty"`
	// Raw keeps the original feed payload for fields not modeled
	// relationally (variants, images, options).
	Raw       JSON      `json:"-" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// ProductSearch is the searchable-text shadow of a Product. It is written in
// the same transaction as its Product row, so it never exists on its own, and
// the FK cascade removes it when the product is deleted.
type ProductSearch struct {
	ProductID   int64    `json:"productId" gorm:"primaryKey;autoIncrement:false"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Product     *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the ProductSearch model
func (ProductSearch) TableName() string {
	return "product_search"
}

// Similarity seeding methods recorded on edges.
const (
	SimilarityMethodFTS       = "fts_mix"
	SimilarityMethodHeuristic = "heuristic"
)

// SimilarityEdge records "target is related to source with score".
// (source, target) is unique; the batch rebuild upserts row-by-row so
// concurrent readers never see a transient absence.
type SimilarityEdge struct {
	SourceID  int64     `json:"sourceId" gorm:"primaryKey;autoIncrement:false;index:idx_product_similarities_source"`
	TargetID  int64     `json:"targetId" gorm:"primaryKey;autoIncrement:false"`
	Score     float64   `json:"score" gorm:"not null"`
	Method    string    `json:"method" gorm:"not null;default:'fts_mix'"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

// TableName returns the table name for the SimilarityEdge model
func (SimilarityEdge) TableName() string {
	return "product_similarities"
}

// ImportRun is the audit record of one feed import.
type ImportRun struct {
	ID         string    `json:"id" gorm:"type:uuid;primary_key"`
	FeedPath   string    `json:"feedPath"`
	Committed  int       `json:"committed"`
	Skipped    int       `json:"skipped"`
	Categories JSONArray `json:"categories" gorm:"type:jsonb"`
	Domains    JSONArray `json:"domains" gorm:"type:jsonb"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// TableName returns the table name for the ImportRun model
func (ImportRun) TableName() string {
	return "import_runs"
}

// ProductPrice is the projection used by the pricing pass.
type ProductPrice struct {
	ID    int64
	Price float64
}

// ScoredProduct pairs a product with a similarity score, used by the
// related-products read path.
type ScoredProduct struct {
	Product Product
	Score   float64
}

// AllowedProductFields are the columns callers may select via the
// fields parameter; anything else is dropped.
var AllowedProductFields = []string{
	"id", "name", "handle", "description", "price", "compare_at_price",
	"category", "vendor", "tags", "bestseller_score", "source_domain",
	"source_url", "created_at", "updated_at",
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success    bool            `json:"success"`
	Data       []Product       `json:"data"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

type RelatedProductsResponse struct {
	Success bool      `json:"success"`
	Data    []Product `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details *JSON  `json:"details,omitempty"`
}
