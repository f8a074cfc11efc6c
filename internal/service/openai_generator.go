package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captia/internal/config"
	"captia/internal/model"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const summarySystemPrompt = `You are a professional meeting summarizer. Read the meeting transcript and write a structured summary.

Use exactly this layout:

🎯 MEETING SUMMARY
- Goal: [main goal of the meeting]
- Key points: [two or three discussion points]
- Customer pain points: [problems the customer mentioned]
- Objections: [concerns raised]
- Decisions: [decisions made]

✅ NEXT STEPS
- Actions: [action items, with owner when mentioned]
- Owner: [who is responsible]
- Deadline: [deadline when mentioned]

📋 DETAILS
- Budget: [budget discussed]
- Timeline: [timeline mentioned]
- Products/services: [products or services discussed]
- Other notes: [anything else relevant]

Keep it concise. Write "Not mentioned" for any field the transcript does not cover.`

const (
	summaryHeader    = "📊 CAPTIA AI MEETING SUMMARY"
	transcriptHeader = "📝 ORIGINAL TRANSCRIPT"
	sectionRule      = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)

// SummaryGenerator turns a transcript into summary text.
type SummaryGenerator interface {
	Generate(ctx context.Context, transcript string) (*model.Generation, error)
}

// OpenAIGenerator generates summaries with the chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      zerolog.Logger
}

// NewOpenAIGenerator creates a generator from the AI provider settings. SDK retries are disabled:
// a failed call fails the request.
func NewOpenAIGenerator(cfg *config.Config, logger zerolog.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	lg := logger.With().Str("service", "OpenAIGenerator").Logger()
	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.OpenAIModel,
		temperature: cfg.OpenAITemperature,
		maxTokens:   cfg.OpenAIMaxTokens,
		logger:      lg,
	}
}

// Generate asks the model for a structured summary and frames it with a header and the transcript.
func (g *OpenAIGenerator) Generate(ctx context.Context, transcript string) (*model.Generation, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage("Analyze this meeting transcript and write a structured summary:\n\n" + transcript),
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			g.logger.Error().Int("status", apiErr.StatusCode).Str("model", g.model).Msg("AI provider returned an error status")
			return nil, fmt.Errorf("chat completion returned status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("chat completion returned empty content")
	}
	return &model.Generation{
		Text:       FrameSummary(content, transcript),
		TokensUsed: completion.Usage.TotalTokens,
	}, nil
}

// FrameSummary builds the text that is returned to the caller and written to the CRM.
func FrameSummary(summary, transcript string) string {
	var b strings.Builder
	b.WriteString(summaryHeader)
	b.WriteString("\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString(sectionRule)
	b.WriteString("\n")
	b.WriteString(transcriptHeader)
	b.WriteString("\n")
	b.WriteString(transcript)
	return b.String()
}

// EstimateCost renders the approximate AI cost for a token count at $0.15 per million tokens.
func EstimateCost(tokens int64) string {
	return fmt.Sprintf("~$%.4f", float64(tokens)/1_000_000*0.15)
}
