package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/raushankrgupta/style-assistant/conversation"
	"github.com/raushankrgupta/style-assistant/search"
	"github.com/raushankrgupta/style-assistant/utils"
)

// SendMessageRequest is one user chat turn
type SendMessageRequest struct {
	Text       string `json:"text" validate:"required_without=Image,max=2000"`
	Image      string `json:"image" validate:"omitempty,url"`
	ByCategory bool   `json:"by_category"`
}

// CategoryRequest narrows a group to one tag
type CategoryRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// ProductQueryRequest is a follow-up question on a product card
type ProductQueryRequest struct {
	Question string `json:"question" validate:"required,max=1000"`
}

// ChatResponse is the conversation after a change
type ChatResponse struct {
	State   conversation.State `json:"state"`
	GroupID string             `json:"group_id,omitempty"`
}

// errNoSearchPhrase means neither the model nor the message gave us anything to search for
var errNoSearchPhrase = errors.New("nothing to search for")

func chatErrorStatus(err error) int {
	switch {
	case errors.Is(err, conversation.ErrGroupNotFound), errors.Is(err, conversation.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, errNoSearchPhrase):
		return http.StatusUnprocessableEntity
	case errors.Is(err, conversation.ErrNoActiveGroup), errors.Is(err, conversation.ErrNoAssistantMessage),
		errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondChat presigns stored social images and writes the state
func (h *Handler) respondChat(w http.ResponseWriter, ctx context.Context, state conversation.State, groupID string) {
	for gi := range state.Groups {
		msgs := make([]conversation.Message, len(state.Groups[gi].AIMessages))
		copy(msgs, state.Groups[gi].AIMessages)
		for mi, m := range msgs {
			if m.SocialMedia == nil {
				continue
			}
			msgs[mi].SocialMedia = &conversation.SocialMedia{
				Images:   utils.PresignImageURLs(ctx, h.Storage, m.SocialMedia.Images),
				Fetching: m.SocialMedia.Fetching,
			}
		}
		state.Groups[gi].AIMessages = msgs
	}
	utils.RespondJSON(w, http.StatusOK, ChatResponse{State: state, GroupID: groupID})
}

func chatTurns(msgs []conversation.Message) []utils.ChatTurn {
	turns := make([]utils.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		turns = append(turns, utils.ChatTurn{Role: m.Role, Text: m.Text})
	}
	return turns
}

// GetChatHandler returns the current conversation
func (h *Handler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}
	state, err := h.Chats.State(r.Context(), userID)
	if err != nil {
		utils.RespondError(w, nil, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	h.respondChat(w, r.Context(), state, state.ActiveGroupID)
}

// ResetChatHandler clears the conversation
func (h *Handler) ResetChatHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Reset Chat API]")

	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.Chats.Reset(r.Context(), userID); err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to reset: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Failed to reset conversation", http.StatusInternalServerError)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ChatResponse{State: conversation.State{}})
}

// SendMessageHandler adds the user's turn, then answers it from a pasted
// link or a search
func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Send Message API]")

	var req SendMessageRequest
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

	state, err := h.Chats.Dispatch(ctx, userID,
		conversation.SetSessionID{ID: userID},
		conversation.AddUserMessage{Text: req.Text, Image: req.Image})
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), chatErrorStatus(err))
		return
	}
	groupID := state.ActiveGroupID
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Group %s", groupID))

	var answer func(context.Context, string, conversation.State, SendMessageRequest) (conversation.State, error)
	link := utils.ExtractURL(req.Text)
	switch {
	case link != "" && utils.IsSocialMediaURL(link):
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Social link: %s", link))
		answer = h.answerSocialLink(link)
	case link != "" && h.Scrape != nil:
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Product link: %s", link))
		answer = h.answerProductLink(link)
	default:
		answer = h.answerSearch(tokenFromContext(ctx))
	}

	state, err = answer(ctx, userID, state, req)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Answer failed: %v", err))
		status := chatErrorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		msg := "Could not find products for this message"
		if errors.Is(err, errNoSearchPhrase) {
			msg = "Add a description so we know what to look for"
		}
		utils.RespondError(w, &logMessageBuilder, msg, status)
		return
	}
	h.respondChat(w, ctx, state, groupID)
}

// answerSearch refines the conversation into a phrase and searches with it.
// Products are pinned to the group that asked, so a reset or newer message
// in between does not receive them.
func (h *Handler) answerSearch(token string) func(context.Context, string, conversation.State, SendMessageRequest) (conversation.State, error) {
	return func(ctx context.Context, userID string, state conversation.State, req SendMessageRequest) (conversation.State, error) {
		groupID := state.ActiveGroupID
		history := state.History()

		phrase, err := h.Assistant.RefineSearchPhrase(ctx, chatTurns(history))
		if err != nil || phrase == "" {
			utils.Log.Warnw("Search phrase refinement failed, using raw text", "error", err)
			phrase = strings.TrimSpace(req.Text)
		}
		if phrase == "" {
			return state, errNoSearchPhrase
		}

		wire := search.HistoryFromMessages(history)
		if req.ByCategory {
			categories, err := h.Search.ProductsByCategory(ctx, wire, phrase, token)
			if err != nil {
				return state, err
			}
			tags := make([]string, 0, len(categories))
			for _, c := range categories {
				tags = append(tags, c.Tag)
			}
			return h.Chats.Dispatch(ctx, userID,
				conversation.AddAIMessage{GroupID: groupID, Text: fmt.Sprintf("Here are some picks for %q, by category", phrase), Categories: [][]string{tags}},
				conversation.SetProductsByCategory{GroupID: groupID, Groups: categories})
		}

		products, err := h.Search.SearchProducts(ctx, wire, phrase, token)
		if err != nil {
			return state, err
		}
		text := fmt.Sprintf("Here are some picks for %q", phrase)
		if len(products) == 0 {
			text = fmt.Sprintf("I couldn't find anything for %q. Try describing it differently?", phrase)
		}
		return h.Chats.Dispatch(ctx, userID,
			conversation.AddAIMessage{GroupID: groupID, Text: text},
			conversation.AddProducts{GroupID: groupID, Products: products})
	}
}

// answerProductLink scrapes a pasted product page into a single card
func (h *Handler) answerProductLink(link string) func(context.Context, string, conversation.State, SendMessageRequest) (conversation.State, error) {
	return func(ctx context.Context, userID string, state conversation.State, req SendMessageRequest) (conversation.State, error) {
		groupID := state.ActiveGroupID
		product, err := h.Scrape(ctx, link)
		if err != nil {
			return state, err
		}
		card := product.ToConversationProduct(uuid.New().String())
		return h.Chats.Dispatch(ctx, userID,
			conversation.AddAIMessage{GroupID: groupID, Text: fmt.Sprintf("Here's %s. Ask me anything about it.", card.Name)},
			conversation.AddProducts{GroupID: groupID, Products: []conversation.Product{card}})
	}
}

// answerSocialLink copies a post's preview images into storage and attaches
// them to the reply
func (h *Handler) answerSocialLink(link string) func(context.Context, string, conversation.State, SendMessageRequest) (conversation.State, error) {
	return func(ctx context.Context, userID string, state conversation.State, req SendMessageRequest) (conversation.State, error) {
		groupID := state.ActiveGroupID
		state, err := h.Chats.Dispatch(ctx, userID,
			conversation.AddAIMessage{GroupID: groupID, Text: "Let me look at that post."},
			conversation.SetSocialMedia{GroupID: groupID, Fetching: true})
		if err != nil {
			return state, err
		}

		var keys []string
		resolved, err := utils.ResolveShortenedURL(ctx, link)
		if err != nil {
			resolved = link
		}
		if previews, err := utils.FetchPreviewImages(ctx, resolved); err != nil {
			utils.Log.Warnw("Failed to read social preview", "url", resolved, "error", err)
		} else {
			stored := utils.CopyImagesToStorage(ctx, h.Storage, previews, "social/"+userID)
			for _, p := range previews {
				if key, ok := stored[p]; ok {
					keys = append(keys, key)
				}
			}
		}

		return h.Chats.Dispatch(ctx, userID, conversation.SetSocialMedia{GroupID: groupID, Images: keys, Fetching: false})
	}
}

// MoreProductsHandler reveals the next page of a group's products
func (h *Handler) MoreProductsHandler(w http.ResponseWriter, r *http.Request) {
	h.dispatchGroup(w, r, func(groupID string, _ *http.Request) (conversation.Action, error) {
		return conversation.GetMoreProducts{GroupID: groupID}, nil
	})
}

// CategoryHandler shows one tag's products in a group
func (h *Handler) CategoryHandler(w http.ResponseWriter, r *http.Request) {
	h.dispatchGroup(w, r, func(groupID string, r *http.Request) (conversation.Action, error) {
		var req CategoryRequest
		if err := utils.DecodeAndValidate(r, &req); err != nil {
			return nil, err
		}
		return conversation.LoadProductsByCategory{GroupID: groupID, Tag: req.Tag}, nil
	})
}

func (h *Handler) dispatchGroup(w http.ResponseWriter, r *http.Request, build func(string, *http.Request) (conversation.Action, error)) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, nil, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupID := mux.Vars(r)["id"]
	action, err := build(groupID, r)
	if err != nil {
		utils.RespondError(w, nil, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := h.Chats.Dispatch(r.Context(), userID, action)
	if err != nil {
		utils.RespondError(w, nil, err.Error(), chatErrorStatus(err))
		return
	}
	h.respondChat(w, r.Context(), state, groupID)
}

// ProductQueryHandler answers a question about one product card as a new
// turn, searching again when the shopper asks for something different
func (h *Handler) ProductQueryHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer utils.FlushLogMessages(&logMessageBuilder)
	utils.AddToLogMessage(&logMessageBuilder, "[Product Query API]")

	var req ProductQueryRequest
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
	vars := mux.Vars(r)

	state, err := h.Chats.State(ctx, userID)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	product, ok := findProduct(state, vars["id"], vars["pid"])
	if !ok {
		utils.RespondError(w, &logMessageBuilder, "Product not found", http.StatusNotFound)
		return
	}
	productJSON, err := json.Marshal(product)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to encode product", http.StatusInternalServerError)
		return
	}

	answer, err := h.Assistant.AnswerProductQuestion(ctx, string(productJSON), req.Question)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Assistant failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Could not answer that right now", http.StatusBadGateway)
		return
	}

	state, err = h.Chats.Dispatch(ctx, userID,
		conversation.AddUserMessage{Text: req.Question, Image: product.ImageURL},
		conversation.AddAIMessage{Text: answer.Answer})
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), chatErrorStatus(err))
		return
	}
	groupID := state.ActiveGroupID

	if answer.WantsAlternative && answer.SearchPhrase != "" {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Searching alternatives: %s", answer.SearchPhrase))
		products, err := h.Search.SearchProducts(ctx, search.HistoryFromMessages(state.History()), answer.SearchPhrase, tokenFromContext(ctx))
		if err != nil {
			// the answer still stands without alternatives
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Alternative search failed: %v", err))
		} else if next, err := h.Chats.Dispatch(ctx, userID, conversation.AddProducts{GroupID: groupID, Products: products}); err == nil {
			state = next
		} else {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Alternatives dropped: %v", err))
		}
	}

	h.respondChat(w, ctx, state, groupID)
}

func findProduct(state conversation.State, groupID, productID string) (conversation.Product, bool) {
	g, ok := state.Group(groupID)
	if !ok {
		return conversation.Product{}, false
	}
	for _, p := range g.Products {
		if p.ID == productID {
			return p, true
		}
	}
	for _, products := range g.ProductsByCategory {
		for _, p := range products {
			if p.ID == productID {
				return p, true
			}
		}
	}
	return conversation.Product{}, false
}
