package msgsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pigeonmsg/pigeond/internal/domain"
	"github.com/pigeonmsg/pigeond/internal/infra/logging"
	http_ "github.com/pigeonmsg/pigeond/internal/infra/transport/http"
)

var (
	// ErrNoUsername is returned when the username is missing from the request.
	ErrNoUsername = errors.New("no username")
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = errors.New("no password")
	// ErrNoAuthor is returned when the message author is missing from the request.
	ErrNoAuthor = errors.New("no author")
)

// HTTPTransportConfig contains configuration parameters for the HTTP
// transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport handles HTTP requests for the message service. It decodes
// request bodies, calls the service, and maps sentinel errors to status
// codes; it performs no validation of its own beyond required fields.
type HTTPTransport struct {
	msgSvc *MessageService
	log    logging.Logger
	cfg    HTTPTransportConfig
}

// NewHTTPTransport creates a new HTTPTransport backed by the given
// MessageService.
func NewHTTPTransport(msgSvc *MessageService, cfg HTTPTransportConfig) *HTTPTransport {
	return &HTTPTransport{
		msgSvc: msgSvc,
		log:    logging.GetLogger("svc.msgsvc.http_transport"),
		cfg:    cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the service
// endpoints:
// - GET /: greeting
// - POST /register: register a new identity
// - POST /message: authenticate and post a message
// - GET /message: authenticate and retrieve messages after a timestamp.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", ht.HandleIndex)
	mux.HandleFunc("POST /register", ht.HandleRegister)
	mux.HandleFunc("POST /message", ht.HandleSend)
	mux.HandleFunc("GET /message", ht.HandleReceive)
	mux.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// HandleIndex answers the root route with a greeting.
func (ht *HTTPTransport) HandleIndex(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Hello, world!"))
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister processes identity registration requests.
// Expects a JSON body with username and password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "identity registered")
		}
	}(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("decode request: %w", err)
	}

	if req.Username == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return ErrNoUsername
	}

	log = log.With(logging.Group("user", "username", req.Username))

	if req.Password == "" && ht.msgSvc.Config.Credentials.Enabled {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return ErrNoPassword
	}

	if err := ht.msgSvc.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, domain.ErrIdentityExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		} else {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("register: %w", err)
	}

	return nil
}

type sendRequest struct {
	Password string         `json:"password"`
	Message  domain.Message `json:"message"`
}

type sendResponse struct {
	Timestamp uint64 `json:"timestamp"`
}

// HandleSend processes message posting requests.
// Expects a JSON body with the author's password and the message.
func (ht *HTTPTransport) HandleSend(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleSend(w, r)
}

func (ht *HTTPTransport) handleSend(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "send failed", "error", err)
		} else {
			log.DebugContext(ctx, "message sent")
		}
	}(r.Context())

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("decode request: %w", err)
	}

	if req.Message.Author == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return ErrNoAuthor
	}

	log = log.With(logging.Group("message", "author", req.Message.Author))

	stamp, err := ht.msgSvc.Send(r.Context(), req.Password, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBadCredentials):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, domain.ErrNonExistentRecipient):
			http.Error(w, http.StatusText(http.StatusNotAcceptable), http.StatusNotAcceptable)
		default:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("send: %w", err)
	}

	if err := json.NewEncoder(w).Encode(sendResponse{Timestamp: stamp}); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

type receiveRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Timestamp uint64 `json:"timestamp"`
}

// HandleReceive processes message retrieval requests.
// Expects a JSON body with username, password, and the timestamp lower bound.
// Returns the matching messages in ascending timestamp order.
func (ht *HTTPTransport) HandleReceive(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleReceive(w, r)
}

func (ht *HTTPTransport) handleReceive(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "receive failed", "error", err)
		} else {
			log.DebugContext(ctx, "messages received")
		}
	}(r.Context())

	var req receiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("decode request: %w", err)
	}

	if req.Username == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return ErrNoUsername
	}

	log = log.With(logging.Group("user", "username", req.Username))

	msgs, err := ht.msgSvc.Receive(r.Context(), req.Username, req.Password, req.Timestamp)
	if err != nil {
		if errors.Is(err, domain.ErrBadCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		} else {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}

		return fmt.Errorf("receive: %w", err)
	}

	if msgs == nil {
		msgs = []domain.StampedMessage{}
	}

	if err := json.NewEncoder(w).Encode(msgs); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}
