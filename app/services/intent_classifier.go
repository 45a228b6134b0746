package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/engageworks/drip-engine/config"
	"github.com/engageworks/drip-engine/models"
)

// IntentClassifier resolves the intent of an inbound message. Implementations
// must degrade rather than fail: on any error the caller receives GENERAL.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, leadContext string) (models.Intent, error)
}

// IntentClassifierImpl calls a chat-completion API with a constrained prompt
// and expects a single intent label back.
type IntentClassifierImpl struct {
	config *config.ClassifierConfig
	client *http.Client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewIntentClassifier creates a new intent classifier instance
func NewIntentClassifier(cfg *config.ClassifierConfig) IntentClassifier {
	return &IntentClassifierImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

const classifierSystemPrompt = `You classify WhatsApp replies from sales leads. ` +
	`Answer with exactly one label from this list and nothing else: ` +
	`CONFIRM_YES, CONFIRM_NO, CORRECTION, DEMO_REQUEST, MEETING_SCHEDULE, ` +
	`PROBLEM_STATEMENT, REQUIREMENT_NOTE, FOLLOWUP_NOTE, TASK_ASSIGN, GENERAL.`

// Classify asks the model for an intent label. Any transport or parse failure
// yields GENERAL so inbound handling never blocks on the classifier.
func (s *IntentClassifierImpl) Classify(ctx context.Context, text string, leadContext string) (models.Intent, error) {
	userContent := text
	if leadContext != "" {
		userContent = fmt.Sprintf("Context: %s\n\nMessage: %s", leadContext, text)
	}

	requestBody, err := json.Marshal(chatCompletionRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		return models.IntentGeneral, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return models.IntentGeneral, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return models.IntentGeneral, fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.IntentGeneral, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.IntentGeneral, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(result.Choices) == 0 {
		return models.IntentGeneral, fmt.Errorf("classifier returned no choices")
	}

	label := models.Intent(strings.TrimSpace(strings.ToUpper(result.Choices[0].Message.Content)))
	if !label.Valid() {
		return models.IntentGeneral, fmt.Errorf("classifier returned unknown label %q", label)
	}
	return label, nil
}

// MockIntentClassifier implements IntentClassifier for testing
type MockIntentClassifier struct {
	NextIntent models.Intent
	NextErr    error
	Calls      []string
}

// NewMockIntentClassifier creates a mock classifier that always answers with the given intent
func NewMockIntentClassifier(intent models.Intent) *MockIntentClassifier {
	return &MockIntentClassifier{NextIntent: intent}
}

func (m *MockIntentClassifier) Classify(ctx context.Context, text string, leadContext string) (models.Intent, error) {
	m.Calls = append(m.Calls, text)
	if m.NextErr != nil {
		return models.IntentGeneral, m.NextErr
	}
	if m.NextIntent == "" {
		return models.IntentGeneral, nil
	}
	return m.NextIntent, nil
}
