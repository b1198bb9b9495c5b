package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGroupNotFound      = errors.New("conversation group not found")
	ErrNoActiveGroup      = errors.New("no active conversation group")
	ErrNoAssistantMessage = errors.New("group has no assistant message yet")
	ErrEmptyMessage       = errors.New("message needs text or an image")
	ErrUnknownAction      = errors.New("unknown conversation action")
	ErrUnknownCategory    = errors.New("group has no products for that category")
)

// Action is anything Reduce understands
type Action interface {
	actionName() string
}

type AddUserMessage struct {
	Text  string
	Image string
}

// AddAIMessage appends an assistant reply. GroupID defaults to the active group.
type AddAIMessage struct {
	GroupID    string
	Text       string
	Categories [][]string
}

// SetProducts replaces a group's products. GroupID defaults to the active group.
type SetProducts struct {
	GroupID  string
	Products []Product
}

// AddProducts appends products and restarts paging on the first page
type AddProducts struct {
	GroupID  string
	Products []Product
}

type GetMoreProducts struct {
	GroupID string
}

type SetProductsByCategory struct {
	GroupID string
	Groups  []CategoryProducts
}

type LoadProductsByCategory struct {
	GroupID string
	Tag     string
}

type Reset struct{}

type SetSessionID struct {
	ID string
}

type SetSocialMedia struct {
	GroupID  string
	Images   []string
	Fetching bool
}

type MarkProductSaved struct {
	GroupID   string
	ProductID string
	Saved     bool
}

func (AddUserMessage) actionName() string         { return "add_user_message" }
func (AddAIMessage) actionName() string           { return "add_ai_message" }
func (SetProducts) actionName() string            { return "set_products" }
func (AddProducts) actionName() string            { return "add_products" }
func (GetMoreProducts) actionName() string        { return "get_more_products" }
func (SetProductsByCategory) actionName() string  { return "set_products_by_category" }
func (LoadProductsByCategory) actionName() string { return "load_products_by_category" }
func (Reset) actionName() string                  { return "reset" }
func (SetSessionID) actionName() string           { return "set_session_id" }
func (SetSocialMedia) actionName() string         { return "set_social_media" }
func (MarkProductSaved) actionName() string       { return "mark_product_saved" }

// now and newID are swapped in tests
var (
	now   = time.Now
	newID = func() string { return uuid.New().String() }
)

// Reduce applies action to state and returns the new state. state is never
// modified. On error the returned state equals the input.
func Reduce(state State, action Action) (State, error) {
	next := clone(state)

	switch a := action.(type) {
	case AddUserMessage:
		if a.Text == "" && a.Image == "" {
			return state, ErrEmptyMessage
		}
		g := Group{
			ID: newID(),
			UserMessage: Message{
				Role:      RoleUser,
				Text:      a.Text,
				Image:     a.Image,
				Timestamp: now(),
			},
			AIMessages:        []Message{},
			Products:          []Product{},
			DisplayedProducts: []Product{},
			Limit:             DefaultLimit,
		}
		next.Groups = append(next.Groups, g)
		next.ActiveGroupID = g.ID
		return next, nil

	case AddAIMessage:
		g, err := next.target(a.GroupID)
		if err != nil {
			return state, err
		}
		msg := Message{Role: RoleAssistant, Text: a.Text, Timestamp: now()}
		for _, tags := range a.Categories {
			msg.Categories = append(msg.Categories, tags...)
		}
		g.AIMessages = append(g.AIMessages, msg)
		return next, nil

	case SetProducts:
		g, err := next.productTarget(a.GroupID)
		if err != nil {
			return state, err
		}
		g.Products = append([]Product{}, a.Products...)
		g.DisplayedProducts = firstPage(g.Products, g.Limit)
		g.Page = 1
		g.ProductsByCategory = nil
		return next, nil

	case AddProducts:
		g, err := next.productTarget(a.GroupID)
		if err != nil {
			return state, err
		}
		g.Products = append(g.Products, a.Products...)
		g.DisplayedProducts = firstPage(g.Products, g.Limit)
		g.Page = 1
		return next, nil

	case GetMoreProducts:
		g, err := next.find(a.GroupID)
		if err != nil {
			return state, err
		}
		start := len(g.DisplayedProducts)
		if start >= len(g.Products) {
			return state, nil
		}
		end := min(start+g.limit(), len(g.Products))
		g.DisplayedProducts = append(g.DisplayedProducts, g.Products[start:end]...)
		g.Page++
		return next, nil

	case SetProductsByCategory:
		g, err := next.productTarget(a.GroupID)
		if err != nil {
			return state, err
		}
		g.Products = []Product{}
		g.ProductsByCategory = make(map[string][]Product, len(a.Groups))
		for _, cat := range a.Groups {
			g.Products = append(g.Products, cat.Products...)
			g.ProductsByCategory[cat.Tag] = append(g.ProductsByCategory[cat.Tag], cat.Products...)
		}
		g.DisplayedProducts = firstPage(g.Products, g.Limit)
		g.Page = 1
		return next, nil

	case LoadProductsByCategory:
		g, err := next.find(a.GroupID)
		if err != nil {
			return state, err
		}
		tagged, ok := g.ProductsByCategory[a.Tag]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrUnknownCategory, a.Tag)
		}
		subset := append([]Product{}, tagged...)
		g.Products = subset
		g.DisplayedProducts = firstPage(subset, g.limit())
		g.Page = 1
		return next, nil

	case Reset:
		return State{}, nil

	case SetSessionID:
		next.SessionID = a.ID
		return next, nil

	case SetSocialMedia:
		g, err := next.target(a.GroupID)
		if err != nil {
			return state, err
		}
		if len(g.AIMessages) == 0 {
			return state, fmt.Errorf("%w: %s", ErrNoAssistantMessage, g.ID)
		}
		last := &g.AIMessages[len(g.AIMessages)-1]
		last.SocialMedia = &SocialMedia{
			Images:   append([]string{}, a.Images...),
			Fetching: a.Fetching,
		}
		return next, nil

	case MarkProductSaved:
		g, err := next.find(a.GroupID)
		if err != nil {
			return state, err
		}
		markSaved(g.Products, a.ProductID, a.Saved)
		markSaved(g.DisplayedProducts, a.ProductID, a.Saved)
		for tag := range g.ProductsByCategory {
			markSaved(g.ProductsByCategory[tag], a.ProductID, a.Saved)
		}
		return next, nil
	}

	return state, fmt.Errorf("%w: %T", ErrUnknownAction, action)
}

// find returns a pointer into s.Groups, so s must already be a clone
func (s *State) find(id string) (*Group, error) {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
}

// target resolves id, falling back to the active group
func (s *State) target(id string) (*Group, error) {
	if id != "" {
		return s.find(id)
	}
	if s.ActiveGroupID == "" {
		return nil, ErrNoActiveGroup
	}
	return s.find(s.ActiveGroupID)
}

func (s *State) productTarget(id string) (*Group, error) {
	g, err := s.target(id)
	if err != nil {
		return nil, err
	}
	if len(g.AIMessages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAssistantMessage, g.ID)
	}
	return g, nil
}

func (g *Group) limit() int {
	if g.Limit <= 0 {
		return DefaultLimit
	}
	return g.Limit
}

func firstPage(products []Product, limit int) []Product {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return append([]Product{}, products[:min(limit, len(products))]...)
}

func markSaved(products []Product, id string, saved bool) {
	for i := range products {
		if products[i].ID == id {
			products[i].Saved = saved
		}
	}
}

// clone deep-copies everything Reduce may write to
func clone(s State) State {
	out := State{SessionID: s.SessionID, ActiveGroupID: s.ActiveGroupID}
	if s.Groups == nil {
		return out
	}
	out.Groups = make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		c := g
		c.AIMessages = cloneMessages(g.AIMessages)
		c.Products = cloneProducts(g.Products)
		c.DisplayedProducts = cloneProducts(g.DisplayedProducts)
		if g.ProductsByCategory != nil {
			c.ProductsByCategory = make(map[string][]Product, len(g.ProductsByCategory))
			for tag, ps := range g.ProductsByCategory {
				c.ProductsByCategory[tag] = cloneProducts(ps)
			}
		}
		out.Groups[i] = c
	}
	return out
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		c := m
		c.Categories = cloneStrings(m.Categories)
		if m.SocialMedia != nil {
			sm := *m.SocialMedia
			sm.Images = cloneStrings(m.SocialMedia.Images)
			c.SocialMedia = &sm
		}
		out[i] = c
	}
	return out
}

// cloneProducts and cloneStrings keep nil and empty distinct so snapshots
// encode the same way before and after a reduce
func cloneProducts(ps []Product) []Product {
	if ps == nil {
		return nil
	}
	return append(make([]Product, 0, len(ps)), ps...)
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	return append(make([]string, 0, len(ss)), ss...)
}
