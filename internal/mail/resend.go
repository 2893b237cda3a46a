// Package mail delivers notifications as email through the Resend HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"tally/internal/services"
)

const defaultAPIURL = "https://api.resend.com/emails"

type Mailer struct {
	apiKey string
	from   string
	apiURL string
	client *http.Client
}

var _ services.Notifier = (*Mailer)(nil)

func NewMailer(apiKey, from string) *Mailer {
	return &Mailer{
		apiKey: apiKey,
		from:   from,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewMailerWithURL points the mailer at a custom endpoint, for tests.
func NewMailerWithURL(apiKey, from, apiURL string) *Mailer {
	m := NewMailer(apiKey, from)
	m.apiURL = apiURL
	return m
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *Mailer) Send(ctx context.Context, n services.Notification) error {
	if m.apiKey == "" {
		return fmt.Errorf("mail: api key not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{n.Recipient},
		Subject: n.Subject,
		HTML:    renderHTML(n),
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// renderHTML builds a plain template per notification kind. Unknown kinds get
// a generic payload dump so nothing queued is ever silently unrenderable.
func renderHTML(n services.Notification) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>" + n.Subject + "</h2>")

	switch n.Kind {
	case "budget-alert":
		fmt.Fprintf(&b, "<p>You've used %v%% of your monthly budget.</p>", n.Payload["percentageUsed"])
		fmt.Fprintf(&b, "<ul><li>Budget: %v</li><li>Spent so far: %v</li><li>Account: %v</li></ul>",
			n.Payload["budgetAmount"], n.Payload["totalExpenses"], n.Payload["accountName"])
	case "monthly-report":
		fmt.Fprintf(&b, "<p>Here's your financial summary for %v.</p>", n.Payload["month"])
		fmt.Fprintf(&b, "<ul><li>Total income: %v</li><li>Total expenses: %v</li><li>Net: %v</li></ul>",
			n.Payload["totalIncome"], n.Payload["totalExpenses"], n.Payload["net"])
		// Payloads arrive either in-process or back from a JSON round trip
		// through the queue, so value types vary.
		if byCategory := stringMap(n.Payload["byCategory"]); len(byCategory) > 0 {
			b.WriteString("<h3>Expenses by category</h3><ul>")
			categories := make([]string, 0, len(byCategory))
			for category := range byCategory {
				categories = append(categories, category)
			}
			sort.Strings(categories)
			for _, category := range categories {
				fmt.Fprintf(&b, "<li>%s: %s</li>", category, byCategory[category])
			}
			b.WriteString("</ul>")
		}
		if insights := stringList(n.Payload["insights"]); len(insights) > 0 {
			b.WriteString("<h3>Insights</h3><ul>")
			for _, insight := range insights {
				b.WriteString("<li>" + insight + "</li>")
			}
			b.WriteString("</ul>")
		}
	default:
		b.WriteString("<ul>")
		keys := make([]string, 0, len(n.Payload))
		for k := range n.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "<li>%s: %v</li>", k, n.Payload[k])
		}
		b.WriteString("</ul>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func stringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, raw := range m {
			out[k] = fmt.Sprintf("%v", raw)
		}
		return out
	}
	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, raw := range l {
			out = append(out, fmt.Sprintf("%v", raw))
		}
		return out
	}
	return nil
}
