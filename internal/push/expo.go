// Package push holds the delivery transports used by the notification
// dispatcher.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/erazemk/fieldstock/internal/notify"
)

// DefaultExpoURL is the Expo push API endpoint.
const DefaultExpoURL = "https://exp.host/--/api/v2/push/send"

// ExpoClient sends notifications through the Expo push service.
type ExpoClient struct {
	url         string
	accessToken string
	httpClient  *http.Client
}

// NewExpoClient creates an Expo client. accessToken is optional.
func NewExpoClient(url, accessToken string) *ExpoClient {
	if url == "" {
		url = DefaultExpoURL
	}
	return &ExpoClient{
		url:         url,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type expoMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

// SendExpo sends one message per token in a single request and returns the
// ticket outcome for each token.
func (c *ExpoClient) SendExpo(ctx context.Context, tokens []string, msg notify.Message) ([]error, error) {
	messages := make([]expoMessage, len(tokens))
	for i, t := range tokens {
		messages[i] = expoMessage{To: t, Title: msg.Title, Body: msg.Body, Data: msg.Data, Sound: "default"}
	}
	body, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encoding expo messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating expo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending expo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("expo returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var result struct {
		Data   []expoTicket `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding expo response: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("expo error: %s", result.Errors[0].Message)
	}

	outcomes := make([]error, len(tokens))
	for i := range tokens {
		if i >= len(result.Data) {
			outcomes[i] = errors.New("missing expo ticket")
			continue
		}
		t := result.Data[i]
		if t.Status != "ok" {
			outcomes[i] = fmt.Errorf("expo ticket %s: %s", t.Details.Error, t.Message)
		}
	}
	return outcomes, nil
}
