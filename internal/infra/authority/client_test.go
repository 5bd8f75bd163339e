package authority

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, zaptest.NewLogger(t))
}

func TestClientLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["username"] != "ada" || body["password"] != "secret" {
			t.Fatalf("unexpected body %v", body)
		}
		if r.Header.Get(requestIDHeader) == "" {
			t.Fatalf("expected request id header")
		}
		_, _ = w.Write([]byte(`{"access_token":"acc","refresh_token":"ref"}`))
	})

	creds, err := client.Login(context.Background(), "ada", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if creds.AccessToken != "acc" || creds.RefreshToken != "ref" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
}

func TestClientAccessSendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/access" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer refresh-1" {
			t.Fatalf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`{"access_token":"access-1"}`))
	})

	token, err := client.Access(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	if token != "access-1" {
		t.Fatalf("expected access-1, got %q", token)
	}
}

func TestClientAccessMissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Access(context.Background(), "refresh-1")
	if !errors.Is(err, domain.ErrMissingAccessToken) {
		t.Fatalf("expected ErrMissingAccessToken, got %v", err)
	}
}

func TestClientRevoked(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantRevoked bool
		wantErr     bool
	}{
		{name: "active", status: http.StatusOK, body: `{"revoked":false}`, wantRevoked: false},
		{name: "revoked", status: http.StatusOK, body: `{"revoked":true}`, wantRevoked: true},
		{name: "missing flag", status: http.StatusOK, body: `{}`, wantRevoked: true, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: `{"message":"boom"}`, wantRevoked: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/auth" || r.Method != http.MethodGet {
					t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			revoked, err := client.Revoked(context.Background(), "refresh")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if revoked != tt.wantRevoked {
				t.Fatalf("expected revoked=%v, got %v", tt.wantRevoked, revoked)
			}
		})
	}
}

func TestClientStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
	})

	err := client.Logout(context.Background(), "token")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Message != "invalid credentials" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestClientLoadFeed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post/feed" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access" {
			t.Fatalf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`[{"_id":"p1","caption":"hello"},{"_id":"p2","text":"world"}]`))
	})

	data, err := client.Load(context.Background(), domain.Route{View: domain.ViewMain}, domain.SessionContext{Token: "access"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data.Items) != 2 || data.Items[0].Label != "hello" || data.Items[1].Label != "world" {
		t.Fatalf("unexpected items %+v", data.Items)
	}
}

func TestClientLoadPrivateChatIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("private chat listing must not hit the network, got %s", r.URL.Path)
	})

	data, err := client.Load(context.Background(), domain.Route{View: domain.ViewChat}, domain.SessionContext{Token: "access"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(data.Items) != 0 {
		t.Fatalf("expected no items, got %+v", data.Items)
	}
}

func TestContentPath(t *testing.T) {
	session := domain.SessionContext{Username: "ada"}
	tests := []struct {
		route domain.Route
		want  string
	}{
		{domain.Route{View: domain.ViewCommunity, CommunityID: "c1"}, "/community/c1"},
		{domain.Route{View: domain.ViewCommunity}, "/community"},
		{domain.Route{View: domain.ViewCollection, CollectionID: "k1"}, "/collection/k1"},
		{domain.Route{View: domain.ViewFile, CollectionID: "k1", FileID: "f1"}, "/collection/k1/file/f1"},
		{domain.Route{View: domain.ViewProfile}, "/user/ada"},
		{domain.Route{View: domain.ViewProfile, Username: "bob"}, "/user/bob"},
		{domain.Route{View: domain.ViewChat, ChatroomID: "42"}, "/chatroom/42"},
		{domain.Route{View: domain.ViewChat, CommunityID: "c1"}, "/community/c1/chatroom"},
		{domain.Route{View: domain.ViewAdminUsers}, "/admin/users"},
	}

	for _, tt := range tests {
		got, _, err := contentPath(tt.route, session)
		if err != nil {
			t.Fatalf("%+v: unexpected error %v", tt.route, err)
		}
		if got != tt.want {
			t.Fatalf("%+v: expected %s, got %s", tt.route, tt.want, got)
		}
	}
}
