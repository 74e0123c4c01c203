package application_test

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/adapter/driven/sqlite"
	"github.com/promptdeck/promptdeck/internal/application"
	"github.com/promptdeck/promptdeck/internal/cipher"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// --- Mock generator ---

type mockGenerator struct {
	mu          sync.Mutex
	validateErr error
	openErr     error
	fragments   []string
	streamErr   error // returned by Next after fragments are exhausted instead of io.EOF
	echoPrompt  bool  // stream back exactly one fragment equal to the prompt

	validated []string
	prompts   []string
}

func (m *mockGenerator) Validate(_ context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validated = append(m.validated, credential)
	return m.validateErr
}

func (m *mockGenerator) Stream(_ context.Context, _, prompt string) (driven.GenerationStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)

	if m.openErr != nil {
		return nil, m.openErr
	}

	fragments := m.fragments
	if m.echoPrompt {
		fragments = []string{prompt}
	}
	return &mockStream{fragments: fragments, finalErr: m.streamErr}, nil
}

func (m *mockGenerator) sentPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type mockStream struct {
	fragments []string
	finalErr  error
	closed    bool
}

func (s *mockStream) Next() (string, error) {
	if len(s.fragments) == 0 {
		if s.finalErr != nil {
			return "", s.finalErr
		}
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

// --- Test environment over a real store ---

type testEnv struct {
	db       *sqlite.DB
	sessions *application.SessionService
	gen      *mockGenerator
	cipher   *cipher.Cipher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	key := make([]byte, cipher.KeySize)
	_, err = rand.Read(key)
	require.NoError(t, err)
	c, err := cipher.New(key)
	require.NoError(t, err)

	gen := &mockGenerator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := application.NewSessionService(sqlite.NewSessionRepo(db), gen, c, logger)

	return &testEnv{db: db, sessions: sessions, gen: gen, cipher: c}
}

func (e *testEnv) sessionCount(t *testing.T) int {
	t.Helper()

	var count int
	require.NoError(t, e.db.Reader.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sessions`).Scan(&count))
	return count
}

// --- Tests ---

func TestSessionService_IssueThenResolve_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Issue(ctx, "AIzaSy-original-key")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.False(t, session.CreatedAt.IsZero())

	credential, err := env.sessions.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSy-original-key", credential)

	// The credential must have gone through provider validation.
	assert.Equal(t, []string{"AIzaSy-original-key"}, env.gen.validated)
}

func TestSessionService_Issue_TokensAreUniqueAndOpaque(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.sessions.Issue(ctx, "key-one")
	require.NoError(t, err)
	second, err := env.sessions.Issue(ctx, "key-two")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	// 32 bytes of entropy base64url-encoded without padding.
	assert.Len(t, first.Token, 43)
	assert.NotContains(t, first.Token, "key-one", "token must not leak the credential")
}

func TestSessionService_Issue_InvalidCredentialPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.gen.validateErr = assert.AnError

	_, err := env.sessions.Issue(context.Background(), "bad-key")
	assert.ErrorIs(t, err, driven.ErrInvalidCredential)
	assert.Zero(t, env.sessionCount(t))
}

func TestSessionService_Issue_EmptyCredential(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Issue(context.Background(), "")
	assert.ErrorIs(t, err, driven.ErrInvalidCredential)
	assert.Empty(t, env.gen.validated, "no provider call for an empty credential")
}

func TestSessionService_Resolve_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Resolve(context.Background(), "never-issued")
	assert.ErrorIs(t, err, driven.ErrSessionNotFound)
}

func TestSessionService_Resolve_CorruptCiphertext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Issue(ctx, "good-key")
	require.NoError(t, err)

	// Corrupt the stored blob out-of-band; resolution must fail loudly,
	// never return a silently wrong plaintext.
	_, err = env.db.Writer.ExecContext(ctx,
		`UPDATE sessions SET encrypted_api_key = ? WHERE token = ?`, "Z2FyYmFnZQ==", session.Token)
	require.NoError(t, err)

	_, err = env.sessions.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, driven.ErrCredentialCorrupt)
}

func TestSessionService_Resolve_UpdatesLastUsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Issue(ctx, "key")
	require.NoError(t, err)

	_, err = env.sessions.Resolve(ctx, session.Token)
	require.NoError(t, err)

	stored, _, err := sqlite.NewSessionRepo(env.db).GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, stored.LastUsed.Before(session.LastUsed))
}
