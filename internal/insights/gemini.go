// Package insights talks to the Gemini API for the two best-effort AI
// features: monthly report insights and receipt scanning. Callers must treat
// every error here as soft.
package insights

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ services.InsightGenerator = (*GeminiClient)(nil)

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewGeminiClientWithURL points the client at a custom endpoint, for tests.
func NewGeminiClientWithURL(apiKey, baseURL string) *GeminiClient {
	c := NewGeminiClient(apiKey)
	c.baseURL = baseURL
	return c
}

// Insights asks the model for three short observations about the month.
func (c *GeminiClient) Insights(ctx context.Context, stats core.MonthlyStats, month string) ([]string, error) {
	categories := make([]string, 0, len(stats.ByCategory))
	for category := range stats.ByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	var lines []string
	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("- %s: %s", category, stats.ByCategory[category].StringFixed(2)))
	}

	prompt := fmt.Sprintf(`Analyze this financial data and provide 3 concise, actionable insights.
Focus on spending patterns and practical advice.
Keep it friendly and conversational.

Financial Data for %s:
- Total Income: %s
- Total Expenses: %s
- Net Income: %s
- Expense Categories:
%s

Format the response as a JSON array of strings, like this:
["insight 1", "insight 2", "insight 3"]`,
		month,
		stats.TotalIncome.StringFixed(2),
		stats.TotalExpenses.StringFixed(2),
		stats.Net().StringFixed(2),
		strings.Join(lines, "\n"))

	text, err := c.generate(ctx, []part{{Text: prompt}})
	if err != nil {
		return nil, err
	}

	var insights []string
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &insights); err != nil {
		return nil, fmt.Errorf("parse insights response: %w", err)
	}
	return insights, nil
}

// ScanReceipt extracts structured fields from a receipt image.
func (c *GeminiClient) ScanReceipt(ctx context.Context, image []byte, mimeType string) (services.Receipt, error) {
	prompt := `Analyze this receipt image and extract the following information in JSON format:
- Total amount (just the number)
- Date (in ISO format)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: housing,transportation,groceries,utilities,entertainment,food,shopping,healthcare,education,personal,travel,insurance,gifts,bills,other-expense)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "ISO date string",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

If it's not a receipt, return an empty object`

	text, err := c.generate(ctx, []part{
		{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		{Text: prompt},
	})
	if err != nil {
		return services.Receipt{}, err
	}

	var parsed struct {
		Amount       json.Number `json:"amount"`
		Date         string      `json:"date"`
		Description  string      `json:"description"`
		MerchantName string      `json:"merchantName"`
		Category     string      `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &parsed); err != nil {
		return services.Receipt{}, fmt.Errorf("parse receipt response: %w", err)
	}

	receipt := services.Receipt{
		Description:  parsed.Description,
		Category:     parsed.Category,
		MerchantName: parsed.MerchantName,
	}
	if parsed.Amount != "" {
		amount, err := decimal.NewFromString(parsed.Amount.String())
		if err != nil {
			return services.Receipt{}, fmt.Errorf("parse receipt amount %q: %w", parsed.Amount, err)
		}
		receipt.Amount = amount
	}
	if parsed.Date != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if date, err := time.Parse(layout, parsed.Date); err == nil {
				receipt.Date = date
				break
			}
		}
	}
	return receipt, nil
}

type (
	inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}
	part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	generateResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
)

func (c *GeminiClient) generate(ctx context.Context, parts []part) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("insights: api key not configured")
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("call model: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// stripCodeFences drops a ```json ... ``` wrapper the model sometimes adds.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
