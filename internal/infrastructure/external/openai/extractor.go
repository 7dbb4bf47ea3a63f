package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/zoompay/internal/application/port"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

// Config configures the receipt extractor
type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	PromptsPath     string
	DefaultCurrency string
}

// ReceiptExtractor implements port.ReceiptExtractor using the OpenAI vision API
type ReceiptExtractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	prompts *PromptConfig
	params  promptParams
	logger  *zap.Logger
}

type promptParams struct {
	DefaultCurrency string
}

// extractedReceipt is the JSON shape the model is asked to return
type extractedReceipt struct {
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Merchant    string      `json:"merchant"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
}

// NewReceiptExtractor creates a new OpenAI receipt extractor
func NewReceiptExtractor(cfg Config, logger *zap.Logger) (*ReceiptExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	prompts, err := LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &ReceiptExtractor{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: cfg.Timeout,
		prompts: prompts,
		params:  promptParams{DefaultCurrency: cfg.DefaultCurrency},
		logger:  logger,
	}, nil
}

// Extract reads the amount and description off a receipt image
func (e *ReceiptExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*port.ReceiptSuggestion, error) {
	e.logger.Info("Extracting receipt fields with Vision API",
		zap.String("mime_type", mimeType),
		zap.Int("size", len(image)))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	p := e.prompts.ReceiptExtraction
	prompt, err := renderTemplate(p.UserTemplate, e.params)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image)),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: vision API call failed: %v", domainwf.ErrStoreUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response from vision API", domainwf.ErrStoreUnavailable)
	}

	content := resp.Choices[0].Message.Content
	suggestion, err := parseSuggestion(content)
	if err != nil {
		e.logger.Error("Failed to parse Vision API response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}

	e.logger.Info("Receipt fields extracted",
		zap.Float64("amount", suggestion.Amount),
		zap.String("merchant", suggestion.Merchant),
		zap.Float64("confidence", suggestion.Confidence))
	return suggestion, nil
}

// parseSuggestion decodes the model reply, tolerating prose or code fences around the JSON
func parseSuggestion(content string) (*port.ReceiptSuggestion, error) {
	var raw extractedReceipt
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("%w: vision API reply has no JSON object", domainwf.ErrMalformedRecord)
		}
		if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
			return nil, fmt.Errorf("%w: failed to parse vision API reply: %v", domainwf.ErrMalformedRecord, err)
		}
	}

	amount := 0.0
	if s := strings.TrimSpace(raw.Amount.String()); s != "" {
		v, err := raw.Amount.Float64()
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 {
			amount = v
		}
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &port.ReceiptSuggestion{
		Amount:      amount,
		Currency:    strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Description: strings.TrimSpace(raw.Description),
		Merchant:    strings.TrimSpace(raw.Merchant),
		Date:        strings.TrimSpace(raw.Date),
		Confidence:  confidence,
	}, nil
}

// extractJSON returns the first balanced JSON object in content
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONEnd finds the end of the JSON object starting at start
func findJSONEnd(content string, start int) int {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		c := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if c == '\\' && inString {
			escapeNext = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// Verify interface compliance
var _ port.ReceiptExtractor = (*ReceiptExtractor)(nil)
