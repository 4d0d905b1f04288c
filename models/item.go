package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemType is the kind of asset an item's fileUrl points at.
type ItemType string

const (
	TypePDF   ItemType = "pdf"
	TypeAudio ItemType = "audio"
)

// Item is a catalog record. The referenced file and image live elsewhere;
// only their URLs are stored.
type Item struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Author      string             `json:"author" bson:"author"`
	Description string             `json:"description" bson:"description"`
	Genre       string             `json:"genre" bson:"genre"`
	Year        int                `json:"year,omitempty" bson:"year,omitempty"`
	Type        ItemType           `json:"type" bson:"type"`
	FileURL     string             `json:"fileUrl" bson:"fileUrl"`
	ImageURL    string             `json:"imageUrl" bson:"imageUrl"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateItemRequest is the payload accepted by POST /items.
type CreateItemRequest struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Description string   `json:"description"`
	Genre       string   `json:"genre"`
	Year        int      `json:"year" validate:"gte=0"`
	Type        ItemType `json:"type" validate:"required,oneof=pdf audio"`
	FileURL     string   `json:"fileUrl" validate:"required"`
	ImageURL    string   `json:"imageUrl"`
}
