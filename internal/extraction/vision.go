package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oliveiraaldo/finsplit/internal/config"
)

const extractionInstructions = `Analise a imagem deste comprovante ou nota fiscal e responda com UM ÚNICO objeto JSON, sem texto adicional, no formato:
{
  "establishment": "nome do estabelecimento",
  "payee": "nome do beneficiário, se houver",
  "total_amount": 0.00,
  "date": "AAAA-MM-DD",
  "document_kind": "receipt | invoice | transfer",
  "transaction_type": "restaurant | grocery | transport | pharmacy | services | other",
  "payment_method": "credit | debit | cash | pix",
  "category": "categoria da despesa",
  "line_items": [{"description": "item", "quantity": 1, "amount": 0.00}]
}
Campos desconhecidos podem ser omitidos.`

// VisionExtractor calls an OpenAI-compatible vision endpoint with a fixed
// structured-output instruction and parses the first JSON object from the
// response text.
type VisionExtractor struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// NewVisionExtractor creates the real extractor from config.
func NewVisionExtractor(log *slog.Logger, cfg config.ExtractorConfig) *VisionExtractor {
	if log == nil {
		log = slog.Default()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VisionExtractor{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     log.With(slog.String("component", "vision_extractor")),
	}
}

type visionContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// receiptPayload is the wire shape the model is instructed to produce.
type receiptPayload struct {
	Establishment   string      `json:"establishment"`
	Payee           string      `json:"payee"`
	TotalAmount     json.Number `json:"total_amount"`
	Date            string      `json:"date"`
	DocumentKind    string      `json:"document_kind"`
	TransactionType string      `json:"transaction_type"`
	PaymentMethod   string      `json:"payment_method"`
	Category        string      `json:"category"`
	LineItems       []struct {
		Description string      `json:"description"`
		Quantity    int         `json:"quantity"`
		Amount      json.Number `json:"amount"`
	} `json:"line_items"`
}

// Extract performs one synchronous vision call. Any failure (transport,
// quota, empty or unparsable response, no anchor field) is returned as an
// error so the caller can fall back.
func (e *VisionExtractor) Extract(ctx context.Context, encodedImage, hint string) (Result, error) {
	parts := []visionContentPart{{Type: "text", Text: buildInstructions(hint)}}
	imagePart := visionContentPart{Type: "image_url", ImageURL: &struct {
		URL string `json:"url"`
	}{URL: "data:image/jpeg;base64," + encodedImage}}
	parts = append(parts, imagePart)

	body, err := json.Marshal(visionRequest{
		Model:       e.model,
		Messages:    []visionMessage{{Role: "user", Content: parts}},
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("vision call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("vision call: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed visionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return Result{}, fmt.Errorf("vision call: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return Result{}, fmt.Errorf("empty model response")
	}

	raw, err := FirstJSONObject(parsed.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}

	receipt, err := decodeReceiptPayload([]byte(raw))
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("extraction accepted",
		slog.String("establishment", receipt.Establishment),
		slog.String("amount", receipt.Amount.String()),
	)
	return Result{
		Receipt:    receipt,
		Confidence: RealConfidence,
		Provenance: ProvenanceReal,
		Raw:        json.RawMessage(raw),
	}, nil
}

// decodeReceiptPayload maps the wire payload to a Receipt. It accepts the
// extraction only when at least one anchor field (total amount, payee, or
// establishment) is present.
func decodeReceiptPayload(raw []byte) (Receipt, error) {
	var payload receiptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Receipt{}, fmt.Errorf("decode extraction: %w", err)
	}

	receipt := Receipt{
		Establishment: strings.TrimSpace(payload.Establishment),
		Payee:         strings.TrimSpace(payload.Payee),
		DocumentKind:  strings.TrimSpace(payload.DocumentKind),
		PaymentMethod: strings.TrimSpace(payload.PaymentMethod),
		Category:      strings.TrimSpace(payload.Category),
	}
	if receipt.DocumentKind == "" {
		receipt.DocumentKind = strings.TrimSpace(payload.TransactionType)
	}
	if amount, err := decimal.NewFromString(payload.TotalAmount.String()); err == nil {
		receipt.Amount = amount
	}
	if date, ok := parseReceiptDate(payload.Date); ok {
		receipt.Date = date
	}
	for _, item := range payload.LineItems {
		line := LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
		}
		if amount, err := decimal.NewFromString(item.Amount.String()); err == nil {
			line.Amount = amount
		}
		receipt.LineItems = append(receipt.LineItems, line)
	}

	if receipt.Amount.IsZero() && receipt.Payee == "" && receipt.Establishment == "" {
		return Receipt{}, fmt.Errorf("extraction has no amount, payee, or establishment")
	}
	return receipt, nil
}

func parseReceiptDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildInstructions(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return extractionInstructions
	}
	return extractionInstructions + "\nContexto enviado pelo usuário: " + hint
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
