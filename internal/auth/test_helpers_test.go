package auth

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/database"
	_ "github.com/AtulPatel1221/budgetwise-app/migrations" // registers the schema
)

const testSecret = "test-signing-secret-at-least-32-bytes!"

// testDB opens a temporary SQLite database with every migration applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

// testHasher is a deliberately cheap Argon2id configuration for tests.
func testHasher() *Hasher {
	return NewHasher(PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sentMail is one message captured by recordingNotifier.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var resetLinkToken = regexp.MustCompile(`reset-password\?token=([0-9a-f]+)`)

// lastToken extracts the raw reset token from the most recent mail.
func (n *recordingNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no reset mail sent")
	}
	m := resetLinkToken.FindStringSubmatch(n.sent[len(n.sent)-1].Body)
	if m == nil {
		t.Fatalf("no reset link in mail body: %s", n.sent[len(n.sent)-1].Body)
	}
	return m[1]
}

// testEnv bundles a Service with its real SQLite stores.
type testEnv struct {
	db       *sql.DB
	users    *SQLiteUserRepository
	resets   *SQLiteResetRepository
	hasher   *Hasher
	tokens   *TokenService
	notifier *recordingNotifier
	clock    *clock
	svc      *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       testDB(t),
		hasher:   testHasher(),
		notifier: &recordingNotifier{},
		clock:    newClock(),
	}
	env.users = NewUserRepository(env.db)
	env.resets = NewResetRepository(env.db)

	tokens, err := NewTokenService(testSecret, 0, env.clock.Now)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	env.tokens = tokens

	svc, err := NewService(ServiceConfig{
		Users:           env.users,
		Resets:          env.resets,
		Hasher:          env.hasher,
		Tokens:          env.tokens,
		Notifier:        env.notifier,
		FrontendBaseURL: "https://budgetwise.test/",
		Now:             env.clock.Now,
		Logger:          discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	env.svc = svc
	return env
}

// seedTestUser inserts a user with the password "test-password".
func seedTestUser(t *testing.T, env *testEnv, username string, role Role) *User {
	t.Helper()

	digest, err := env.hasher.Hash("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: digest,
		Role:         role,
	}
	if err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// asIdentity binds user to a fresh context.
func asIdentity(user *User) context.Context {
	return WithIdentity(context.Background(), Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// activeResetTokens counts stored reset tokens for userID.
func activeResetTokens(t *testing.T, db *sql.DB, userID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM password_reset_tokens WHERE user_id = ?", userID).Scan(&n); err != nil {
		t.Fatalf("counting reset tokens: %v", err)
	}
	return n
}
