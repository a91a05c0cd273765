package msgclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pigeonmsg/pigeond/internal/domain"
	context_ "github.com/pigeonmsg/pigeond/internal/infra/context"
	"github.com/pigeonmsg/pigeond/internal/infra/logging"
)

const TraceIDHeader = "X-Request-ID"

// HTTPClientConfig holds configuration for the HTTP message client.
type HTTPClientConfig struct {
	// BaseURL is the root URL of the message service
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080"`
}

// HTTPClient implements MsgClient using HTTP requests against the message
// service API, mapping response status codes back to the domain error
// taxonomy.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ MsgClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, http.DefaultClient will be used.
func NewHTTPClient(cfg HTTPClientConfig, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.msgsvc.http_client"),
		cfg:        cfg,
	}
}

// Register implements MsgClient.Register.
func (hc *HTTPClient) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}

	resp, err := hc.do(ctx, http.MethodPost, "/register", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrIdentityExists, username)
	default:
		return fmt.Errorf("register: %w", unexpectedStatus(resp))
	}
}

// Send implements MsgClient.Send.
func (hc *HTTPClient) Send(ctx context.Context, password string, msg domain.Message) (uint64, error) {
	body := struct {
		Password string         `json:"password"`
		Message  domain.Message `json:"message"`
	}{Password: password, Message: msg}

	resp, err := hc.do(ctx, http.MethodPost, "/message", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return 0, fmt.Errorf("%w: %s", domain.ErrBadCredentials, msg.Author)
	case http.StatusNotAcceptable:
		return 0, domain.ErrNonExistentRecipient
	default:
		return 0, fmt.Errorf("send: %w", unexpectedStatus(resp))
	}

	var result struct {
		Timestamp uint64 `json:"timestamp"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return result.Timestamp, nil
}

// Receive implements MsgClient.Receive.
func (hc *HTTPClient) Receive(
	ctx context.Context,
	username, password string,
	since uint64,
) ([]domain.StampedMessage, error) {
	body := struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		Timestamp uint64 `json:"timestamp"`
	}{Username: username, Password: password, Timestamp: since}

	resp, err := hc.do(ctx, http.MethodGet, "/message", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", domain.ErrBadCredentials, username)
	default:
		return nil, fmt.Errorf("receive: %w", unexpectedStatus(resp))
	}

	var msgs []domain.StampedMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return msgs, nil
}

func (hc *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, hc.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	return resp, nil
}

func unexpectedStatus(resp *http.Response) error {
	//nolint:err113
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
