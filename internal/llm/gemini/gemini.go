// Package gemini generates answers with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/genai"

	"pdfrag/internal/llm"
)

type Client struct {
	client *genai.Client
}

var _ llm.Generator = (*Client)(nil)

func New(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

func (c *Client) Generate(ctx context.Context, r llm.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(r.Temperature),
		MaxOutputTokens: int32(r.MaxTokens),
	}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	resp, err := c.client.Models.GenerateContent(ctx, r.Model, genai.Text(r.Prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// classify maps genai failures onto the llm error kinds.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Code: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &llm.StatusError{Code: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	return err
}
