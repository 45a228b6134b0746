package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/engageworks/drip-engine/config"
)

// LeadCard holds contact fields extracted from a business card image
type LeadCard struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// LeadExtractor pulls contact details out of a card image. Extraction failure
// is not fatal: the caller still creates a lead and fills fields later.
type LeadExtractor interface {
	ExtractLead(ctx context.Context, mediaURL string) (*LeadCard, error)
}

// LeadExtractorImpl sends the image to a vision-capable chat model and parses
// the JSON it returns.
type LeadExtractorImpl struct {
	config *config.ClassifierConfig
	client *http.Client
}

// NewLeadExtractor creates a new lead extractor instance
func NewLeadExtractor(cfg *config.ClassifierConfig) LeadExtractor {
	return &LeadExtractorImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

const extractorPrompt = `Extract contact details from this business card image. ` +
	`Reply with a JSON object with keys name, company, designation, phone, email. ` +
	`Use empty strings for fields you cannot read. Reply with JSON only.`

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type visionMessage struct {
	Role    string       `json:"role"`
	Content []visionPart `json:"content"`
}

type visionPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

func (s *LeadExtractorImpl) ExtractLead(ctx context.Context, mediaURL string) (*LeadCard, error) {
	requestBody, err := json.Marshal(visionRequest{
		Model: s.config.Model,
		Messages: []visionMessage{
			{
				Role: "user",
				Content: []visionPart{
					{Type: "text", Text: extractorPrompt},
					{Type: "image_url", ImageURL: &visionImageURL{URL: mediaURL}},
				},
			},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode extractor response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("extractor returned no choices")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var card LeadCard
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &card); err != nil {
		return nil, fmt.Errorf("failed to parse extracted card: %w", err)
	}
	return &card, nil
}

// MockLeadExtractor implements LeadExtractor for testing
type MockLeadExtractor struct {
	NextCard *LeadCard
	NextErr  error
	Calls    []string
}

// NewMockLeadExtractor creates a mock extractor returning the given card
func NewMockLeadExtractor(card *LeadCard) *MockLeadExtractor {
	return &MockLeadExtractor{NextCard: card}
}

func (m *MockLeadExtractor) ExtractLead(ctx context.Context, mediaURL string) (*LeadCard, error) {
	m.Calls = append(m.Calls, mediaURL)
	if m.NextErr != nil {
		return nil, m.NextErr
	}
	if m.NextCard == nil {
		return &LeadCard{}, nil
	}
	return m.NextCard, nil
}
