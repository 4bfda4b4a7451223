package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"sensiboost/config"
	"sensiboost/logging"
)

// Generator produces free text for a prompt. A disabled generator reports
// Enabled() == false and is never called.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

var ErrGenerationDisabled = errors.New("generation provider not configured")

type DisabledGenerator struct{}

func (DisabledGenerator) Enabled() bool { return false }

func (DisabledGenerator) Generate(context.Context, string) (string, error) {
	return "", ErrGenerationDisabled
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultGenTimeout  = 30 * time.Second
)

// NewGenerator selects the provider named in the config. Missing credentials
// give the disabled generator; an unknown provider name is an error.
func NewGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (Generator, error) {
	log = logging.OrNop(log)
	if !cfg.GenAIEnabled() {
		log.Info("genai.disabled")
		return DisabledGenerator{}, nil
	}
	switch strings.ToLower(cfg.GenAI.Provider) {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, cfg.GenAI, log)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg.GenAI, nil, log), nil
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.GenAI.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultGenTimeout
	}
	return d
}

// GeminiGenerator calls the Gemini API through the genai SDK and asks for a
// JSON response.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func NewGeminiGenerator(ctx context.Context, cfg config.GenAI, log *zap.Logger) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: timeoutOrDefault(cfg.Timeout),
		log:     logging.OrNop(log),
	}, nil
}

func (g *GeminiGenerator) Enabled() bool { return true }

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	g.log.Info("genai.gemini.ok",
		zap.String("model", g.model),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

// OpenAIGenerator speaks the chat/completions protocol, which also covers
// compatible gateways via BaseURL.
type OpenAIGenerator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	log     *zap.Logger
}

func NewOpenAIGenerator(cfg config.GenAI, client *http.Client, log *zap.Logger) *OpenAIGenerator {
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)}
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIGenerator{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		model:   model,
		client:  client,
		log:     logging.OrNop(log),
	}
}

func (o *OpenAIGenerator) Enabled() bool { return true }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float32           `json:"temperature"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       o.model,
		Temperature: 0.4,
		Messages: []chatMessage{
			{Role: "system", Content: "Return ONLY a JSON object."},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai http error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, truncateRunes(string(raw), 300))
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	o.log.Info("genai.openai.ok",
		zap.String("model", o.model),
		zap.Int("chars", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}
