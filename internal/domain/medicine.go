package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a GeoJSON point, coordinates ordered [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

type ActiveIngredient struct {
	Name     string `bson:"name" json:"name"`
	Strength string `bson:"strength,omitempty" json:"strength,omitempty"`
}

// Medicine is a catalog record. Created and updated by inventory-management
// collaborators; this service only reads it.
type Medicine struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Manufacturer         string             `bson:"manufacturer" json:"manufacturer"`
	Category             string             `bson:"category" json:"category"`
	Type                 string             `bson:"type,omitempty" json:"type,omitempty"`
	Price                float64            `bson:"price" json:"price"`
	Stock                int                `bson:"stock" json:"stock"`
	Rating               float64            `bson:"rating" json:"rating"`
	RequiresPrescription bool               `bson:"requiresPrescription" json:"requiresPrescription"`
	ActiveIngredients    []ActiveIngredient `bson:"activeIngredients,omitempty" json:"activeIngredients,omitempty"`
	PharmacyID           string             `bson:"pharmacyId,omitempty" json:"pharmacyId,omitempty"`
	Location             *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	ViewCount            int64              `bson:"viewCount,omitempty" json:"viewCount,omitempty"`
	// SearchText is the precomputed blob of name, manufacturer and active
	// ingredient names, maintained on write by the inventory side.
	SearchText string     `bson:"searchText,omitempty" json:"-"`
	DeletedAt  *time.Time `bson:"deletedAt,omitempty" json:"-"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// CursorPosition marks where a cursor-mode fetch resumes. At most one of
// After/Before is set; the zero value starts from the beginning.
type CursorPosition struct {
	After  primitive.ObjectID
	Before primitive.ObjectID
}

// FacetSnapshot holds the distinct filterable values over the live catalog.
type FacetSnapshot struct {
	Categories    []string   `json:"categories"`
	PriceRange    PriceRange `json:"priceRange"`
	Manufacturers []string   `json:"manufacturers"`
	Types         []string   `json:"types"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type MedicineRepository interface {
	FindPage(ctx context.Context, q SearchQuery, skip, limit int) ([]Medicine, error)
	Count(ctx context.Context, q SearchQuery) (int64, error)
	FindWithCursor(ctx context.Context, q SearchQuery, pos CursorPosition, limit int) ([]Medicine, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Medicine, error)
	FacetValues(ctx context.Context) (*FacetSnapshot, error)
}
