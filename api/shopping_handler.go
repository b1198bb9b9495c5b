package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raushankrgupta/style-assistant/conversation"
	"github.com/raushankrgupta/style-assistant/models"
	"github.com/raushankrgupta/style-assistant/utils"
)

// AddShoppingItemRequest saves a product card from the conversation
type AddShoppingItemRequest struct {
	GroupID   string `json:"group_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

// ReactionRequest is a like or dislike on a product card
type ReactionRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Reaction  string `json:"reaction" validate:"required,oneof=like dislike"`
	Comment   string `json:"comment" validate:"max=500"`
}

// ShoppingListResponse represents one page of the wishlist
type ShoppingListResponse struct {
	Items       []models.ShoppingListItem `json:"items"`
	Total       int64                     `json:"total"`
	CurrentPage int                       `json:"current_page"`
	TotalPages  int                       `json:"total_pages"`
}

// AddShoppingItemHandler saves a product to the wishlist and flags the card
func (h *Handler) AddShoppingItemHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Add Shopping Item API]")

	var req AddShoppingItemRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}
	ctx := r.Context()

	state, err := h.Chats.State(ctx, userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	product, ok := findProduct(state, req.GroupID, req.ProductID)
	if !ok {
		utils.RespondError(w, &logMessageBuilder, "Product not found", http.StatusNotFound)
		return
	}

	item := &models.ShoppingListItem{
		UserID:    userID,
		ProductID: product.ID,
		Brand:     product.Brand,
		Name:      product.Name,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
		BuyURL:    product.PurchaseURL,
		Source:    string(product.Source),
		CreatedAt: time.Now(),
	}
	if err := h.Shopping.AddItem(ctx, item); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to save item: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to save item", http.StatusInternalServerError)
		return
	}

	state, err = h.Chats.Dispatch(ctx, userID, conversation.MarkProductSaved{GroupID: req.GroupID, ProductID: req.ProductID, Saved: true})
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), chatErrorStatus(err))
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Saved %s", product.ID))
	h.respondChat(w, ctx, state, req.GroupID)
}

// ShoppingListHandler returns the wishlist, latest first
func (h *Handler) ShoppingListHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page := 1
	limit := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, 50)
	}

	items, total, err := h.Shopping.ListItems(r.Context(), userID, page, limit)
	if err != nil {
		utils.RespondError(w, nil, "Failed to fetch data", http.StatusInternalServerError)
		return
	}
	// Ensure empty slice is returned as [] instead of null
	if items == nil {
		items = []models.ShoppingListItem{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	utils.RespondJSON(w, http.StatusOK, ShoppingListResponse{
		Items:       items,
		Total:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
	})
}

// ReactionHandler records a like or dislike on a product
func (h *Handler) ReactionHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Product Reaction API]")

	var req ReactionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reaction := &models.ProductReaction{
		UserID:    userID,
		ProductID: req.ProductID,
		Reaction:  req.Reaction,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: time.Now(),
	}
	if err := h.Shopping.AddReaction(r.Context(), reaction); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to save reaction: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to save reaction", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, reaction)
}
