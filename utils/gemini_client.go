package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ImageReview is the verdict on one uploaded style-profile photo
type ImageReview struct {
	URL      string `json:"url"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// ProductAnswer is the reply to a question asked on a product card
type ProductAnswer struct {
	Answer           string `json:"answer"`
	WantsAlternative bool   `json:"wants_alternative"`
	SearchPhrase     string `json:"search_phrase,omitempty"`
}

// ChatTurn is a transcript line handed to the model
type ChatTurn struct {
	Role string
	Text string
}

// Assistant is the generative model behind search refinement, product Q&A
// and avatar creation
type Assistant interface {
	RefineSearchPhrase(ctx context.Context, history []ChatTurn) (string, error)
	AnswerProductQuestion(ctx context.Context, productJSON, question string) (*ProductAnswer, error)
	ReviewStyleImages(ctx context.Context, imageURLs []string) ([]ImageReview, error)
	GenerateAvatarImage(ctx context.Context, imageURLs []string, details string) ([]byte, error)
}

// GeminiAssistant implements Assistant with the Gemini API
type GeminiAssistant struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

func NewGeminiAssistant(apiKey, textModel, imageModel string) *GeminiAssistant {
	return &GeminiAssistant{APIKey: apiKey, TextModel: textModel, ImageModel: imageModel}
}

func (g *GeminiAssistant) client(ctx context.Context) (*genai.Client, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// RefineSearchPhrase turns a shopping conversation into one search phrase
func (g *GeminiAssistant) RefineSearchPhrase(ctx context.Context, history []ChatTurn) (string, error) {
	var transcript strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&transcript, "%s: %s\n", turn.Role, turn.Text)
	}
	prompt := fmt.Sprintf(`
You help a shopper find fashion items.
Read the conversation and reply with a single product search phrase (max 8 words) for what they want now.
Reply with the phrase only.

Conversation:
%s`, transcript.String())

	text, err := g.generateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(text), `"`), nil
}

// AnswerProductQuestion answers a follow-up about one product
func (g *GeminiAssistant) AnswerProductQuestion(ctx context.Context, productJSON, question string) (*ProductAnswer, error) {
	prompt := fmt.Sprintf(`
You are a friendly fashion shopping assistant.
Product: %s
Shopper question: %s

Reply as JSON: {"answer": string, "wants_alternative": bool, "search_phrase": string}.
Set wants_alternative when the shopper asks for something different (colour, price, style) and give a search_phrase for it.`, productJSON, question)

	text, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var answer ProductAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return &ProductAnswer{Answer: strings.TrimSpace(text)}, nil
	}
	return &answer, nil
}

// ReviewStyleImages checks each photo is a clear, single-person, full-body shot
func (g *GeminiAssistant) ReviewStyleImages(ctx context.Context, imageURLs []string) ([]ImageReview, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.TextModel)
	model.ResponseMIMEType = "application/json"

	reviews := make([]ImageReview, 0, len(imageURLs))
	for _, url := range imageURLs {
		data, mimeType, err := FetchImage(ctx, url)
		if err != nil {
			reviews = append(reviews, ImageReview{URL: url, Reason: "image could not be downloaded"})
			continue
		}
		resp, err := model.GenerateContent(ctx,
			genai.Text(`Is this a clear photo of exactly one person, face visible, no sunglasses, upper body or full body? Reply as JSON {"approved": bool, "reason": string}.`),
			genai.ImageData(imageFormat(mimeType), data),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to review image: %w", err)
		}
		review := ImageReview{URL: url}
		if err := json.Unmarshal([]byte(firstText(resp)), &review); err != nil {
			review.Reason = "image could not be reviewed"
		}
		review.URL = url
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// GenerateAvatarImage renders a stylised full-body avatar from the approved photos
func (g *GeminiAssistant) GenerateAvatarImage(ctx context.Context, imageURLs []string, details string) ([]byte, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.ImageModel)
	prompt := fmt.Sprintf(`
Create one full-body fashion avatar of the person in these photos, standing, neutral background.
Keep their face, skin tone, hair and body proportions exactly. Plain fitted basics.
Person details: %s
`, details)

	parts := []genai.Part{genai.Text(prompt)}
	for _, url := range imageURLs {
		data, mimeType, err := FetchImage(ctx, url)
		if err != nil {
			Log.Warnw("Skipping avatar source image", "url", url, "error", err)
			continue
		}
		parts = append(parts, genai.ImageData(imageFormat(mimeType), data))
	}
	if len(parts) == 1 {
		return nil, fmt.Errorf("no source images could be fetched")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content generated")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			return blob.Data, nil
		}
	}
	return nil, fmt.Errorf("model returned no image")
}

func (g *GeminiAssistant) generateText(ctx context.Context, prompt string) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	resp, err := client.GenerativeModel(g.TextModel).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return firstText(resp), nil
}

func (g *GeminiAssistant) generateJSON(ctx context.Context, prompt string) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(g.TextModel)
	model.ResponseMIMEType = "application/json"
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// imageFormat maps a MIME type to the short format genai.ImageData expects
func imageFormat(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "png"):
		return "png"
	case strings.Contains(mimeType, "webp"):
		return "webp"
	}
	return "jpeg"
}
