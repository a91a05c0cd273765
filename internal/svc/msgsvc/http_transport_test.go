package msgsvc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pigeonmsg/pigeond/internal/domain"
	"github.com/pigeonmsg/pigeond/internal/svc/msgsvc"
)

func setupTestTransport(t *testing.T, clock *fakeClock) (*msgsvc.HTTPTransport, *msgsvc.MessageService) {
	t.Helper()

	svc, _ := setupTestService(t, clock)

	//nolint:exhaustruct
	return msgsvc.NewHTTPTransport(svc, msgsvc.HTTPTransportConfig{}), svc
}

func doJSON(t *testing.T, ht *msgsvc.HTTPTransport, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()

	ht.ServeHTTP(rec, req)

	return rec
}

func TestHTTPTransport_Index(t *testing.T) {
	t.Parallel()

	ht, _ := setupTestTransport(t, &fakeClock{})

	rec := doJSON(t, ht, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", rec.Code)
	}

	if rec.Body.String() != "Hello, world!" {
		t.Errorf("GET / body = %q, want greeting", rec.Body.String())
	}
}

func TestHTTPTransport_Register(t *testing.T) {
	t.Parallel()

	ht, _ := setupTestTransport(t, &fakeClock{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid registration", `{"username":"alice","password":"hunter2"}`, http.StatusOK},
		{"duplicate username", `{"username":"alice","password":"other"}`, http.StatusConflict},
		{"missing username", `{"password":"hunter2"}`, http.StatusBadRequest},
		{"missing password", `{"username":"bob"}`, http.StatusBadRequest},
		{"malformed body", `{username`, http.StatusBadRequest},
	}

	//nolint:paralleltest // cases build on each other
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, ht, http.MethodPost, "/register", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("POST /register status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

//nolint:funlen
func TestHTTPTransport_Send(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{}
	clock.Set(100)

	ht, svc := setupTestTransport(t, clock)

	for _, username := range []string{"alice", "bob"} {
		if err := svc.Register(ctx, username, username+"-password"); err != nil {
			t.Fatalf("Register(%q) error = %v", username, err)
		}
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid send",
			body:       `{"password":"alice-password","message":{"author":"alice","content":"hi","recipients":["bob"]}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"password":"wrong","message":{"author":"alice","content":"hi"}}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown author",
			body:       `{"password":"alice-password","message":{"author":"mallory","content":"hi"}}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown recipient",
			body:       `{"password":"alice-password","message":{"author":"alice","content":"hi","recipients":["mallory"]}}`,
			wantStatus: http.StatusNotAcceptable,
		},
		{
			name:       "missing author",
			body:       `{"password":"alice-password","message":{"content":"hi"}}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doJSON(t, ht, http.MethodPost, "/message", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("POST /message status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Timestamp uint64 `json:"timestamp"`
			}

			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if resp.Timestamp != 100 {
				t.Errorf("timestamp = %d, want 100", resp.Timestamp)
			}
		})
	}
}

func TestHTTPTransport_Receive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{}
	clock.Set(100)

	ht, svc := setupTestTransport(t, clock)

	for _, username := range []string{"alice", "bob"} {
		if err := svc.Register(ctx, username, username+"-password"); err != nil {
			t.Fatalf("Register(%q) error = %v", username, err)
		}
	}

	msg := domain.Message{Author: "alice", Content: "hi", Recipients: []string{"bob"}}
	if _, err := svc.Send(ctx, "alice-password", msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	clock.Set(101)

	rec := doJSON(t, ht, http.MethodGet, "/message",
		`{"username":"bob","password":"bob-password","timestamp":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /message status = %d, want 200", rec.Code)
	}

	var msgs []domain.StampedMessage
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(msgs) != 1 || msgs[0].Message.Content != "hi" || msgs[0].Timestamp != 100 {
		t.Fatalf("GET /message = %+v, want one message %q at 100", msgs, "hi")
	}

	// Strict lower bound excludes the message's own stamp.
	rec = doJSON(t, ht, http.MethodGet, "/message",
		`{"username":"bob","password":"bob-password","timestamp":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /message status = %d, want 200", rec.Code)
	}

	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("GET /message body = %s, want []", body)
	}

	rec = doJSON(t, ht, http.MethodGet, "/message",
		`{"username":"bob","password":"wrong","timestamp":0}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /message status = %d, want 401", rec.Code)
	}
}
