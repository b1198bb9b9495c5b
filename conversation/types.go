package conversation

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultLimit is how many products a group shows per page
const DefaultLimit = 4

// SocialMedia holds images pulled from a pasted social-media link
type SocialMedia struct {
	Images   []string `json:"images"`
	Fetching bool     `json:"fetching"`
}

// Message is a single chat bubble
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text"`
	Image       string       `json:"image,omitempty"`
	SocialMedia *SocialMedia `json:"social_media,omitempty"`
	Categories  []string     `json:"categories,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Product is a search result card. Source is passed through untouched.
type Product struct {
	ID          string          `json:"id"`
	Brand       string          `json:"brand"`
	Name        string          `json:"name"`
	Price       string          `json:"price"`
	ImageURL    string          `json:"image_url"`
	Source      json.RawMessage `json:"source,omitempty"`
	PurchaseURL string          `json:"purchase_url,omitempty"`
	Saved       bool            `json:"saved,omitempty"`
}

// CategoryProducts is one tagged bucket of search results
type CategoryProducts struct {
	Tag      string    `json:"tag"`
	Products []Product `json:"products"`
}

// Group is one user turn with the assistant replies and products it produced
type Group struct {
	ID                 string               `json:"id"`
	UserMessage        Message              `json:"user_message"`
	AIMessages         []Message            `json:"ai_messages"`
	Products           []Product            `json:"products"`
	DisplayedProducts  []Product            `json:"displayed_products"`
	Page               int                  `json:"page"`
	Limit              int                  `json:"limit"`
	ProductsByCategory map[string][]Product `json:"products_by_category,omitempty"`
}

// State is the whole conversation for one chat session
type State struct {
	SessionID     string  `json:"session_id"`
	Groups        []Group `json:"groups"`
	ActiveGroupID string  `json:"active_group_id"`
}

// Group returns a copy of the group with id
func (s State) Group(id string) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// ActiveGroup returns the group the next assistant message lands in
func (s State) ActiveGroup() (Group, bool) {
	if s.ActiveGroupID == "" {
		return Group{}, false
	}
	return s.Group(s.ActiveGroupID)
}

// History flattens the transcript in order, for the search backend
func (s State) History() []Message {
	var out []Message
	for _, g := range s.Groups {
		out = append(out, g.UserMessage)
		out = append(out, g.AIMessages...)
	}
	return out
}
