package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang-quant/config"
	"golang-quant/internal/dto"
	"golang-quant/internal/engine"
	"golang-quant/pkg/httpclient"
	"golang-quant/pkg/logger"
	"golang-quant/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type AIRepository interface {
	CommentOnRun(ctx context.Context, kind string, symbols []string, summary *engine.Summary) (*dto.RunCommentary, error)
}

// geminiAIRepository generates run commentary through the Google Gemini API.
type geminiAIRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger) (AIRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiAIRepository{
		httpClient:     httpclient.New(cfg.Gemini.BaseURL, cfg.Gemini.Timeout, ""),
		cfg:            cfg,
		logger:         log.With(logger.StringField("component", "gemini")),
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) CommentOnRun(ctx context.Context, kind string, symbols []string, summary *engine.Summary) (*dto.RunCommentary, error) {
	if summary == nil {
		return nil, fmt.Errorf("no summary to comment on")
	}

	prompt, err := r.promptRunCommentary(kind, symbols, summary)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to build commentary prompt", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to build commentary prompt: %w", err)
	}

	geminiAPIResponse, err := r.sendRequest(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	var result dto.RunCommentary
	if err := r.parseResponse(geminiAPIResponse, &result); err != nil {
		r.logger.ErrorContext(ctx, "failed to parse response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to parse response from gemini: %w", err)
	}

	return &result, nil
}

func (r *geminiAIRepository) sendRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(geminiTokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token gemini limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request gemini limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Parts: []dto.Part{{Text: prompt}}}},
	}

	geminiAPIResponse := dto.GeminiAPIResponse{}

	apiURL := fmt.Sprintf("/%s:generateContent?key=%s", r.cfg.Gemini.BaseModel, r.cfg.Gemini.APIKey)

	geminiResp, err := r.httpClient.Post(ctx, apiURL, payload, nil, &geminiAPIResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	if geminiResp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "failed to get data from gemini", logger.IntField("status_code", geminiResp.StatusCode))
		return nil, fmt.Errorf("failed to get data: %v", geminiResp.Body)
	}

	return &geminiAPIResponse, nil
}

func (r *geminiAIRepository) parseResponse(response *dto.GeminiAPIResponse, dest interface{}) error {
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("invalid response from Gemini API: no content found")
	}

	jsonString := response.Candidates[0].Content.Parts[0].Text
	jsonString = strings.Trim(jsonString, "`json\n`")

	return json.Unmarshal([]byte(jsonString), dest)
}

func (r *geminiAIRepository) promptRunCommentary(kind string, symbols []string, summary *engine.Summary) (string, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are a quantitative analyst reviewing the result of a daily-bar backtest.\n\n")
	sb.WriteString(fmt.Sprintf("Run kind: %s\n", kind))
	if len(symbols) > 0 {
		sb.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(symbols, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Performance summary (JSON): %s\n\n", string(summaryJSON)))

	sb.WriteString(`### Task:
1. Write a one-sentence headline for this run.
2. Write a short assessment (max 3 sentences) of the risk/return profile.
3. Provide key_insights as a map[string]string. Pick your own keys (for
   example "drawdown", "consistency", "volatility"); each value is one
   short insight, at most 100 characters.
4. List caveats: things the close-fill model hides (slippage on large
   orders, survivorship, overfitting), at most 3 items.

### Output format:
Respond with JSON only, no prose around it:
{
  "headline": "...",
  "assessment": "...",
  "key_insights": {"...": "..."},
  "caveats": ["..."]
}
`)

	return sb.String(), nil
}
