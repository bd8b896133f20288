package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/communityhq/opportunity-board/config"
	"github.com/communityhq/opportunity-board/shared"
	"github.com/sirupsen/logrus"
)

// ChatCompletionClient calls an OpenAI-compatible chat-completions endpoint.
type ChatCompletionClient struct {
	baseURL       string
	apiKey        string
	model         string
	config        *config.ExtractionConfig
	clientFactory *shared.HTTPClientFactory
	logger        *logrus.Entry
}

// NewChatCompletionClient creates an AI client for the configured provider
func NewChatCompletionClient(baseURL, apiKey, model string, cfg *config.ExtractionConfig, clientFactory *shared.HTTPClientFactory) *ChatCompletionClient {
	if cfg == nil {
		cfg = config.DefaultExtractionConfig()
	}

	return &ChatCompletionClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		apiKey:        apiKey,
		model:         model,
		config:        cfg,
		clientFactory: clientFactory,
		logger:        logrus.WithField("component", "ChatCompletionClient"),
	}
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt pair and returns the raw completion text.
func (c *ChatCompletionClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", shared.UpstreamError("ai_complete", "failed to encode completion request", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", shared.UpstreamError("ai_complete", "failed to build completion request", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	client := c.clientFactory.Client(c.config.CallTimeout)

	response, err := client.Do(httpRequest)
	if err != nil {
		return "", shared.UpstreamError("ai_complete", "completion request failed", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", shared.UpstreamError("ai_complete", "failed to read completion response", err)
	}

	if response.StatusCode != http.StatusOK {
		return "", shared.UpstreamError("ai_complete",
			fmt.Sprintf("completion request returned HTTP %d", response.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(responseBody))))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(responseBody, &completion); err != nil {
		return "", shared.UpstreamError("ai_complete", "failed to decode completion response", err)
	}

	if completion.Error != nil {
		return "", shared.UpstreamError("ai_complete", completion.Error.Message, nil)
	}

	if len(completion.Choices) == 0 {
		return "", shared.UpstreamError("ai_complete", "completion response contained no choices", nil)
	}

	c.logger.WithFields(logrus.Fields{
		"model":       c.model,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}).Debug("Completion request succeeded")

	return completion.Choices[0].Message.Content, nil
}
