package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/alekseyt9/newsdigest/internal/config"
	"github.com/alekseyt9/newsdigest/internal/ports"
)

const systemPrompt = `You are a senior financial-technology analyst covering AI, the Taiwan market and the US market. Analyze the news article you are given and respond for investment reference.

Provide:
1. A summary (300-500 words) covering the core content, key figures, dates, companies and people involved, and why the event matters.
2. A score from 1 to 10: novelty (1-3), market/industry impact (1-4), actionability (1-3).
3. A category, one of: RESEARCH, PRODUCT, INDUSTRY, MARKET, POLICY, OPINION.
4. Related listed companies with tickers (Taiwan numeric codes like 2330, US symbols like NVDA) and why each is affected, distinguishing direct from indirect exposure.
5. A market impact assessment: expected short-term (1-2 weeks) and mid-term (1-3 months) reaction, and follow-ups worth watching.
6. An investment view: opportunities, risks, and supply-chain knock-on effects.

Respond with a single JSON object only, no other text:
{
  "summary": "detailed summary",
  "score": number,
  "category": "category",
  "related_companies": "affected companies with tickers and reasoning",
  "market_impact": "short-term and mid-term assessment",
  "investment_insight": "view and suggestions"
}`

// OpenAIClient implements the analysis service over the OpenAI chat
// completions API.
type OpenAIClient struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ ports.AnalysisService = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration. BaseURL is optional and
// mostly useful for proxies and tests.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout() > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout()))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Analyze sends the rendered prompt and returns the model's raw JSON text.
// Validation belongs to the caller; these bytes are untrusted.
func (c *OpenAIClient) Analyze(ctx context.Context, prompt string) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	return []byte(cleanJSONResponse(resp.Choices[0].Message.Content)), nil
}

// cleanJSONResponse strips markdown code fences some models wrap around JSON
// despite being told not to.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
