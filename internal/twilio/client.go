package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/relaydesk/telephony/pkg/logging"
)

var sendTracer = otel.Tracer("relaydesk.internal.twilio.send")

const defaultBaseURL = "https://api.twilio.com"

// Client posts messages using Twilio's REST API.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient builds a client with sane defaults.
func NewClient(accountSID, authToken string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessageRequest carries one outbound message. Either Body or ContentSid
// must be set; ContentVariables only apply to template sends.
type SendMessageRequest struct {
	From                string
	To                  string
	Body                string
	MessagingServiceSid string
	ContentSid          string
	ContentVariables    map[string]string
}

// SendMessageResponse is the accepted-message acknowledgment.
type SendMessageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// SendMessage posts a single message. Any non-2xx provider response is an
// error; the caller decides about fallbacks.
func (c *Client) SendMessage(ctx context.Context, msg SendMessageRequest) (*SendMessageResponse, error) {
	if c.accountSID == "" || c.authToken == "" {
		return nil, errors.New("twilio: credentials missing")
	}
	if msg.To == "" {
		return nil, errors.New("twilio: to required")
	}
	if msg.From == "" && msg.MessagingServiceSid == "" {
		return nil, errors.New("twilio: from or messaging service required")
	}
	if strings.TrimSpace(msg.Body) == "" && msg.ContentSid == "" {
		return nil, errors.New("twilio: body or content sid required")
	}

	ctx, span := sendTracer.Start(ctx, "twilio.messages.create")
	defer span.End()
	span.SetAttributes(attribute.String("relaydesk.to", msg.To))

	payload := url.Values{}
	payload.Set("To", msg.To)
	if msg.From != "" {
		payload.Set("From", msg.From)
	}
	if msg.MessagingServiceSid != "" {
		payload.Set("MessagingServiceSid", msg.MessagingServiceSid)
	}
	if msg.ContentSid != "" {
		payload.Set("ContentSid", msg.ContentSid)
		if len(msg.ContentVariables) > 0 {
			vars, err := json.Marshal(msg.ContentVariables)
			if err != nil {
				return nil, fmt.Errorf("twilio: marshal content variables: %w", err)
			}
			payload.Set("ContentVariables", string(vars))
		}
	} else {
		payload.Set("Body", msg.Body)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("twilio: send failed: %s", formatAPIError(resp.StatusCode, body))
		span.RecordError(err)
		return nil, err
	}

	var parsed SendMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("twilio: decode response: %w", err)
	}
	c.logger.Info("twilio message accepted", "to", msg.To, "sid", parsed.SID, "status", parsed.Status)
	return &parsed, nil
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatAPIError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed apiError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
