package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"apfeed/internal/logger"
	"apfeed/internal/reconciliation"
	"apfeed/pkg/models"
)

// minConfidence is the lowest model confidence accepted as a match.
const minConfidence = 0.8

// ChatCompleter is the part of *openai.Client the resolver needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// MatchResult is the JSON answer expected from the model.
type MatchResult struct {
	Matched        bool    `json:"matched"`
	CandidateIndex int     `json:"candidate_index"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// OpenAIResolver asks a chat model which of several ledger payment rows
// belongs to an invoice. Answers below minConfidence count as skip.
type OpenAIResolver struct {
	client   ChatCompleter
	model    string
	invoices map[string]models.InvoiceHeader
	log      zerolog.Logger
}

// NewOpenAIResolver creates a resolver. invoices supplies the expected
// invoice data per invoice number and may be nil.
func NewOpenAIResolver(client ChatCompleter, model string, invoices map[string]models.InvoiceHeader) *OpenAIResolver {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIResolver{
		client:   client,
		model:    model,
		invoices: invoices,
		log:      logger.WithComponent("reconciliation-openai"),
	}
}

// Resolve implements reconciliation.Resolver.
func (r *OpenAIResolver) Resolve(ctx context.Context, invoiceNumber string, candidates []models.PaymentRecord) (reconciliation.Decision, error) {
	const op = "OpenAIResolver.Resolve"

	prompt, err := r.prompt(invoiceNumber, candidates)
	if err != nil {
		return reconciliation.Skip(), fmt.Errorf("%s: %w", op, err)
	}

	r.log.Debug().
		Str("invoice_number", invoiceNumber).
		Int("candidates_count", len(candidates)).
		Msg("Sending payment matching request")

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return reconciliation.Skip(), fmt.Errorf("%s: chat completion failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return reconciliation.Skip(), fmt.Errorf("%s: no response choices", op)
	}

	result, err := ParseMatchResult(resp.Choices[0].Message.Content)
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("invoice_number", invoiceNumber).
			Msg("Failed to parse model response, skipping invoice")
		return reconciliation.Skip(), nil
	}

	r.log.Debug().
		Str("invoice_number", invoiceNumber).
		Bool("matched", result.Matched).
		Int("candidate_index", result.CandidateIndex).
		Float64("confidence", result.Confidence).
		Str("reason", result.Reason).
		Msg("Received matching result")

	if !result.Matched || result.Confidence < minConfidence {
		return reconciliation.Skip(), nil
	}
	return reconciliation.Choose(result.CandidateIndex), nil
}

// ParseMatchResult decodes a model answer, tolerating a markdown code fence.
func ParseMatchResult(response string) (*MatchResult, error) {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var result MatchResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("invalid match result: %w", err)
	}
	return &result, nil
}

func (r *OpenAIResolver) prompt(invoiceNumber string, candidates []models.PaymentRecord) (string, error) {
	invoice := map[string]interface{}{
		"invoice_number": invoiceNumber,
	}
	if h, ok := r.invoices[invoiceNumber]; ok {
		invoice["vendor_code"] = h.VendorCode
		invoice["invoice_date"] = h.InvoiceDate.Format("2006-01-02")
		invoice["total_amount"] = h.TotalAmount.StringFixed(2)
	}

	invoiceJSON, err := json.MarshalIndent(invoice, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal invoice JSON: %w", err)
	}

	candidatesJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal candidates JSON: %w", err)
	}

	return fmt.Sprintf(`Several accounts payable ledger rows were found for one library invoice.
Decide which row records the payment of this invoice.

INVOICE:
%s

LEDGER ROWS (candidate_index is the position in this list, starting at 0):
%s

Consider:
1. Does the pay amount match the invoice total?
2. Is the payment dated on or after the invoice date?
3. Does the vendor agree with the invoice vendor?

Answer only with JSON in this format:
{
  "matched": true/false,
  "candidate_index": 0,
  "confidence": 0.95,
  "reason": "amount and vendor agree"
}

If no row fits, set "matched": false and "candidate_index": -1.`, string(invoiceJSON), string(candidatesJSON)), nil
}
