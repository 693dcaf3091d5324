package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-auth-sessions"
)

// MockUserService implements auth.UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, payload auth.SignupPayload) (*auth.User, error) {
	args := m.Called(ctx, payload)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserService) ValidateUser(ctx context.Context, payload auth.LoginPayload) (*auth.User, error) {
	args := m.Called(ctx, payload)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, filter auth.UserFilter) (*auth.User, error) {
	args := m.Called(ctx, filter)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserService) ActivateUser(ctx context.Context, userID int64) (*auth.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockSessionStore implements auth.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, userID int64, token string, expiresAt time.Time, opts ...auth.SessionOption) (*auth.AuthSession, error) {
	o := auth.ApplySessionOptions(opts...)
	args := m.Called(ctx, userID, token, expiresAt, o)
	session, _ := args.Get(0).(*auth.AuthSession)
	return session, args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, userID int64, newToken, oldToken string, expiresAt time.Time) (*auth.AuthSession, error) {
	args := m.Called(ctx, userID, newToken, oldToken, expiresAt)
	session, _ := args.Get(0).(*auth.AuthSession)
	return session, args.Error(1)
}

func (m *MockSessionStore) Find(ctx context.Context, userID int64, token string) (*auth.AuthSession, error) {
	args := m.Called(ctx, userID, token)
	session, _ := args.Get(0).(*auth.AuthSession)
	return session, args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, userID int64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockSessionStore) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return int64(args.Int(0)), args.Error(1)
}

// MockVerificationTokenStore implements auth.VerificationTokenStore
type MockVerificationTokenStore struct {
	mock.Mock
}

func (m *MockVerificationTokenStore) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*auth.VerificationToken, error) {
	args := m.Called(ctx, userID, token, expiresAt)
	record, _ := args.Get(0).(*auth.VerificationToken)
	return record, args.Error(1)
}

func (m *MockVerificationTokenStore) Find(ctx context.Context, userID int64, token string) (*auth.VerificationToken, error) {
	args := m.Called(ctx, userID, token)
	record, _ := args.Get(0).(*auth.VerificationToken)
	return record, args.Error(1)
}

func (m *MockVerificationTokenStore) Delete(ctx context.Context, token *auth.VerificationToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendEmail(ctx context.Context, from, to, subject, html string) error {
	args := m.Called(ctx, from, to, subject, html)
	return args.Error(0)
}

// MockUserRepository implements auth.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	out, _ := args.Get(0).(*auth.User)
	return out, args.Error(1)
}

func (m *MockUserRepository) Find(ctx context.Context, filter auth.UserFilter) (*auth.User, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).(*auth.User)
	return out, args.Error(1)
}

func (m *MockUserRepository) Activate(ctx context.Context, userID int64) (*auth.User, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).(*auth.User)
	return out, args.Error(1)
}

// captureMailer records every message it is asked to send
type captureMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

type sentEmail struct {
	From    string
	To      string
	Subject string
	HTML    string
}

func (c *captureMailer) SendEmail(_ context.Context, from, to, subject, html string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentEmail{From: from, To: to, Subject: subject, HTML: html})
	return c.err
}

func (c *captureMailer) Sent() []sentEmail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentEmail(nil), c.sent...)
}

// captureLogger keeps formatted log lines by level
type captureLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{lines: map[string][]string{}}
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], fmt.Sprintf(format, args...))
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) Lines(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines[level]...)
}

// captureSink records activity events
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) Types() []auth.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

func newTestTokenService(now func() time.Time) *auth.TokenService {
	ts, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
	}, newCaptureLogger())
	if err != nil {
		panic(err)
	}
	if now != nil {
		ts.WithClock(now)
	}
	return ts
}

// fixedClock is a mutable test clock
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
