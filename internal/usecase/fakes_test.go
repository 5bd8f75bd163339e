package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dan-divy/spruce-sub000/internal/core/domain"
	"github.com/dan-divy/spruce-sub000/internal/core/port"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeTokenStore struct {
	mu        sync.Mutex
	token     string
	expiresAt int64
	clears    int
}

func (f *fakeTokenStore) Read(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokenStore) Save(_ context.Context, token string, expiresAt int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.expiresAt = expiresAt
}

func (f *fakeTokenStore) Clear(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.expiresAt = 0
	f.clears++
}

type fakeAuthority struct {
	mu sync.Mutex

	creds      port.Credentials
	loginErr   error
	access     string
	accessErr  error
	revoked    bool
	revokedErr error
	logoutErr  error
	registered []domain.Registration

	loginCalls   int
	accessCalls  int
	revokedCalls int
	logoutCalls  []string
}

func (f *fakeAuthority) Login(_ context.Context, username, password string) (port.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return port.Credentials{}, f.loginErr
	}
	return f.creds, nil
}

func (f *fakeAuthority) Register(_ context.Context, form domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, form)
	return nil
}

func (f *fakeAuthority) Access(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessCalls++
	if f.accessErr != nil {
		return "", f.accessErr
	}
	return f.access, nil
}

func (f *fakeAuthority) Revoked(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokedCalls++
	if f.revokedErr != nil {
		return true, f.revokedErr
	}
	return f.revoked, nil
}

func (f *fakeAuthority) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, token)
	return f.logoutErr
}

func (f *fakeAuthority) accessCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessCalls
}

// fakeDecoder resolves tokens from a fixed table; unknown tokens fail to decode.
type fakeDecoder struct {
	mu     sync.Mutex
	claims map[string]domain.Claims
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{claims: make(map[string]domain.Claims)}
}

func (f *fakeDecoder) set(token string, claims domain.Claims) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims[token] = claims
}

func (f *fakeDecoder) Decode(token string) (domain.Claims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.claims[token]
	if !ok {
		return domain.Claims{}, domain.ErrTokenDecode
	}
	return claims, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
}

func (r *recordingPublisher) PublishSessionEvent(_ context.Context, event domain.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) kinds() []domain.SessionEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.SessionEventKind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type stubValidator struct {
	err error
}

func (s stubValidator) Validate(domain.Registration) error { return s.err }

var errAuthorityDown = errors.New("authority unreachable")

// journal is an ordered record of side effects shared between fakes.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// fakeTransport records emits and lets tests drive connection events.
type fakeTransport struct {
	mu       sync.Mutex
	journal  *journal
	opts     port.TransportOptions
	emits    []emitted
	closed   int
	emitErr  error
	closeErr error
}

type emitted struct {
	event   string
	payload any
}

func (t *fakeTransport) Emit(event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.emitErr != nil {
		return t.emitErr
	}
	t.emits = append(t.emits, emitted{event: event, payload: payload})
	t.journal.add("emit:" + event + ":" + t.opts.Scope)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	t.journal.add("close:" + t.opts.Scope)
	return t.closeErr
}

func (t *fakeTransport) connect() {
	if t.opts.Handlers.OnConnect != nil {
		t.opts.Handlers.OnConnect()
	}
}

func (t *fakeTransport) deliver(name string, payload any) {
	data, _ := json.Marshal(payload)
	if t.opts.Handlers.OnEvent != nil {
		t.opts.Handlers.OnEvent(port.RealtimeEvent{Name: name, Data: data})
	}
}

func (t *fakeTransport) emitted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.emits))
	for _, e := range t.emits {
		names = append(names, e.event)
	}
	return names
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// fakeFactory hands out fakeTransports; tests connect them explicitly.
type fakeFactory struct {
	mu         sync.Mutex
	journal    *journal
	transports []*fakeTransport
	openErr    error
}

func (f *fakeFactory) Open(_ context.Context, opts port.TransportOptions) (port.Transport, error) {
	f.mu.Lock()
	if f.openErr != nil {
		f.mu.Unlock()
		return nil, f.openErr
	}
	transport := &fakeTransport{opts: opts, journal: f.journal}
	f.journal.add("open:" + opts.Scope)
	f.transports = append(f.transports, transport)
	f.mu.Unlock()
	return transport, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transports) == 0 {
		return nil
	}
	return f.transports[len(f.transports)-1]
}

func (f *fakeFactory) scopes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	scopes := make([]string, 0, len(f.transports))
	for _, t := range f.transports {
		scopes = append(scopes, t.opts.Scope)
	}
	return scopes
}
