package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wirerag/ragcore/agent"
	"github.com/wirerag/ragcore/message"
	"github.com/wirerag/ragcore/retry"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-pro",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements the LLMClient interface for Google Gemini using the
// official generative-ai-go SDK.
type Provider struct {
	config *Config
	client *genai.Client
	model  *genai.GenerativeModel
}

// New creates a new Gemini provider and dials the Gemini API.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-pro"
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(config.Temperature)
	model.SetMaxOutputTokens(config.MaxTokens)

	return &Provider{config: config, client: client, model: model}, nil
}

var _ agent.LLMClient = (*Provider)(nil)

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Generate implements agent.LLMClient interface
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	var systemPrompts []string
	history := make([]*genai.Content, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Text())
		case message.RoleUser:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Text())}})
		case message.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Text())}})
		}
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("generate request has no user or assistant messages")
	}

	if len(systemPrompts) > 0 {
		p.model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join(systemPrompts, "\n")))
	}

	// The final message is the turn being sent; everything before it is chat history.
	turn := history[len(history)-1]
	cs := p.model.StartChat()
	cs.History = history[:len(history)-1]

	return retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) (*agent.GenerateResponse, error) {
		resp, err := cs.SendMessage(ctx, turn.Parts...)
		if err != nil {
			return nil, fmt.Errorf("Gemini API error: %w", err)
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, retry.Permanent(fmt.Errorf("no content in Gemini response"))
		}

		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}

		respMsg := message.NewMessage(message.RoleAssistant, text.String())
		respMsg.Completed = true

		out := &agent.GenerateResponse{Message: respMsg}
		if resp.UsageMetadata != nil {
			out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return out, nil
	})
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = float32(temp)
	p.model.SetTemperature(p.config.Temperature)
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = int32(max)
	p.model.SetMaxOutputTokens(p.config.MaxTokens)
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
	p.model = p.client.GenerativeModel(model)
	p.model.SetTemperature(p.config.Temperature)
	p.model.SetMaxOutputTokens(p.config.MaxTokens)
}
