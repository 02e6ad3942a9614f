package trans

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/afanty2021/DashPlayer/pkg/strutil"
)

const (
	// subtitleLineBreaker separates sentences inside one batched
	// request/response so the model keeps a stable 1:1 line mapping.
	subtitleLineBreaker = "@@@"
	// inlineBreakerPlaceholder protects in-sentence line breaks from
	// being confused with the batch separator.
	inlineBreakerPlaceholder = "<br>"

	defaultTimeout = 30 * time.Second
)

// Config holds the connection settings for the translation provider.
// Key and endpoint are runtime-mutable (settings rotation).
type Config struct {
	APIKey         string
	Endpoint       string
	Model          string
	TargetLanguage string
	Timeout        time.Duration
}

// OpenAIProvider translates batches through an OpenAI-compatible chat
// completion endpoint. The underlying client is cached and only
// rebuilt when the key or endpoint changes.
type OpenAIProvider struct {
	mu  sync.Mutex
	cfg Config

	client         *openai.Client
	cachedKey      string
	cachedEndpoint string
}

func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &OpenAIProvider{cfg: cfg}
}

// Configure replaces the provider settings. The next request will use
// a fresh client if the key or endpoint changed.
func (p *OpenAIProvider) Configure(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg.Timeout <= 0 {
		cfg.Timeout = p.cfg.Timeout
	}
	p.cfg = cfg
}

func (p *OpenAIProvider) getClient() (*openai.Client, Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg := p.cfg
	if strutil.HasBlank(cfg.APIKey, cfg.Endpoint) {
		return nil, cfg, fmt.Errorf("translation provider key or endpoint is not configured")
	}

	if p.client != nil && p.cachedKey == cfg.APIKey && p.cachedEndpoint == cfg.Endpoint {
		return p.client, cfg, nil
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.Endpoint),
	)
	p.client = &client
	p.cachedKey = cfg.APIKey
	p.cachedEndpoint = cfg.Endpoint
	return p.client, cfg, nil
}

// BatchTranslate translates the given texts in one chat completion
// call and returns a source-text keyed mapping.
func (p *OpenAIProvider) BatchTranslate(ctx context.Context, texts []string) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}

	client, cfg, err := p.getClient()
	if err != nil {
		return nil, err
	}

	formatted := make([]string, len(texts))
	for i, text := range texts {
		formatted[i] = strings.ReplaceAll(text, "\n", inlineBreakerPlaceholder)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildPrompt(cfg.TargetLanguage)),
			openai.UserMessage(strings.Join(formatted, "\n"+subtitleLineBreaker+"\n")),
		},
		Model:       cfg.Model,
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("translation response has no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	return pairTranslations(texts, content)
}

// pairTranslations splits the model output and pairs it positionally
// with the source texts. A line-count mismatch fails the whole batch
// rather than guessing at alignment.
func pairTranslations(texts []string, content string) (map[string]string, error) {
	lines := strings.Split(content, subtitleLineBreaker)
	if len(lines) != len(texts) {
		return nil, fmt.Errorf("translation count mismatch: sent %d lines, got %d", len(texts), len(lines))
	}

	ret := make(map[string]string, len(texts))
	for i, text := range texts {
		translated := strings.TrimSpace(lines[i])
		translated = strings.ReplaceAll(translated, inlineBreakerPlaceholder, "\n")
		ret[text] = translated
	}
	return ret, nil
}

func buildPrompt(targetLanguage string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional subtitle translation expert. Translate the following subtitle sentences to " + targetLanguage + ".\n\n")
	prompt.WriteString("=== TRANSLATION GUIDELINES ===\n")
	prompt.WriteString("1. Ensure the translation flows naturally while preserving meaning\n")
	prompt.WriteString("2. Keep subtitle length appropriate for screen reading\n")
	prompt.WriteString("3. Preserve " + inlineBreakerPlaceholder + " inline break markers\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Input sentences are separated by " + subtitleLineBreaker + " on its own line.\n")
	prompt.WriteString("Return ONLY the translated sentences, separated by " + subtitleLineBreaker + "\n")
	prompt.WriteString("Do not include any explanations, notes, or additional text.\n")
	prompt.WriteString("The number of output sentences must exactly match the number of input sentences.\n")

	return prompt.String()
}
