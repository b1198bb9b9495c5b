package models

import (
	"encoding/json"
	"time"

	"github.com/raushankrgupta/style-assistant/conversation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScrapedProduct represents the product details read off a retailer page
type ScrapedProduct struct {
	Title           string   `json:"title"`
	Brand           string   `json:"brand"`
	MRP             string   `json:"mrp"`              // Maximum Retail Price (List Price)
	DiscountedPrice string   `json:"discounted_price"` // Selling Price
	Discount        string   `json:"discount"`
	Description     string   `json:"description"`
	Images          []string `json:"image_paths"`
	URL             string   `json:"url"`
	Retailer        string   `json:"retailer"`
}

// ToConversationProduct turns a scraped page into a chat product card
func (p *ScrapedProduct) ToConversationProduct(id string) conversation.Product {
	price := p.DiscountedPrice
	if price == "" {
		price = p.MRP
	}
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	source, _ := json.Marshal(p)
	return conversation.Product{
		ID:          id,
		Brand:       p.Brand,
		Name:        p.Title,
		Price:       price,
		ImageURL:    image,
		Source:      source,
		PurchaseURL: p.URL,
	}
}

// ShoppingListItem is a product saved to the user's wishlist
type ShoppingListItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	ProductID string             `bson:"product_id" json:"product_id"`
	Brand     string             `bson:"brand" json:"brand"`
	Name      string             `bson:"name" json:"name"`
	Price     string             `bson:"price" json:"price"`
	ImageURL  string             `bson:"image_url" json:"image_url"`
	BuyURL    string             `bson:"buy_url,omitempty" json:"buy_url,omitempty"`
	Source    string             `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
