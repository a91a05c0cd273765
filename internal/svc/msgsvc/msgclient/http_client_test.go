package msgclient_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pigeonmsg/pigeond/internal/domain"
	"github.com/pigeonmsg/pigeond/internal/infra/logging"
	"github.com/pigeonmsg/pigeond/internal/store"
	"github.com/pigeonmsg/pigeond/internal/svc/msgsvc"
	"github.com/pigeonmsg/pigeond/internal/svc/msgsvc/msgclient"
)

type fakeClock struct {
	now atomic.Uint64
}

func (c *fakeClock) Clock() uint64 {
	return c.now.Load()
}

func (c *fakeClock) Set(now uint64) {
	c.now.Store(now)
}

type nopSnapshotRepo struct{}

func (nopSnapshotRepo) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("not stored")
}

func (nopSnapshotRepo) Store(context.Context, string, []byte) error {
	return nil
}

func (nopSnapshotRepo) Close() error {
	return nil
}

func setupClient(t *testing.T, clock *fakeClock) msgclient.MsgClient {
	t.Helper()

	svc := &msgsvc.MessageService{
		Config: msgsvc.ServiceConfig{
			Credentials: msgsvc.CredentialConfig{
				Enabled: true,
				Salt:    "Hello, world!!!!",
				Cost:    4,
			},
		},
		State:     store.NewState(store.NewDirectory(), store.NewMessageLog(clock.Clock)),
		Snapshots: nopSnapshotRepo{},
		Log:       logging.NewNopLogger(),
	}

	//nolint:exhaustruct
	server := httptest.NewServer(msgsvc.NewHTTPTransport(svc, msgsvc.HTTPTransportConfig{}))
	t.Cleanup(server.Close)

	return msgclient.NewHTTPClient(msgclient.HTTPClientConfig{BaseURL: server.URL}, server.Client())
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{}
	clock.Set(100)

	client := setupClient(t, clock)

	for _, username := range []string{"alice", "bob"} {
		if err := client.Register(ctx, username, username+"-password"); err != nil {
			t.Fatalf("Register(%q) error = %v", username, err)
		}
	}

	if err := client.Register(ctx, "alice", "other"); !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("Register() error = %v, want ErrIdentityExists", err)
	}

	msg := domain.Message{Author: "alice", Content: "hi", Recipients: []string{"bob"}}

	stamp, err := client.Send(ctx, "alice-password", msg)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if stamp != 100 {
		t.Errorf("Send() stamp = %d, want 100", stamp)
	}

	clock.Set(101)

	msgs, err := client.Receive(ctx, "bob", "bob-password", 0)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if len(msgs) != 1 || msgs[0].Message.Content != "hi" || msgs[0].Timestamp != stamp {
		t.Fatalf("Receive() = %+v, want one message %q at %d", msgs, "hi", stamp)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fakeClock{}
	client := setupClient(t, clock)

	if err := client.Register(ctx, "alice", "alice-password"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	msg := domain.Message{Author: "alice", Content: "hi"}

	if _, err := client.Send(ctx, "wrong", msg); !errors.Is(err, domain.ErrBadCredentials) {
		t.Errorf("Send() error = %v, want ErrBadCredentials", err)
	}

	targeted := domain.Message{Author: "alice", Content: "hi", Recipients: []string{"mallory"}}

	if _, err := client.Send(ctx, "alice-password", targeted); !errors.Is(err, domain.ErrNonExistentRecipient) {
		t.Errorf("Send() error = %v, want ErrNonExistentRecipient", err)
	}

	if _, err := client.Receive(ctx, "alice", "wrong", 0); !errors.Is(err, domain.ErrBadCredentials) {
		t.Errorf("Receive() error = %v, want ErrBadCredentials", err)
	}
}
