package chat_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/persona-backend/internal/service/chat"
	"github.com/personahub/persona-backend/internal/service/quota"
	"github.com/personahub/persona-backend/internal/types"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newFakeUserStore(users ...*types.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*types.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) IncrementMessageCount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return types.ErrNotFound
	}
	u.MonthlyMessageCount++
	return nil
}

func (s *fakeUserStore) SetTier(_ context.Context, id uuid.UUID, tier types.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return types.ErrNotFound
	}
	u.SubscriptionTier = tier
	return nil
}

func (s *fakeUserStore) ResetAllMessageCounts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.MonthlyMessageCount > 0 {
			u.MonthlyMessageCount = 0
			n++
		}
	}
	return n, nil
}

type fakePersonaStore struct {
	personas map[uuid.UUID]*types.Persona
}

func newFakePersonaStore(personas ...*types.Persona) *fakePersonaStore {
	s := &fakePersonaStore{personas: make(map[uuid.UUID]*types.Persona)}
	for _, p := range personas {
		s.personas[p.ID] = p
	}
	return s
}

func (s *fakePersonaStore) GetByID(_ context.Context, id uuid.UUID) (*types.Persona, error) {
	p, ok := s.personas[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return p, nil
}

func (s *fakePersonaStore) ListVisible(_ context.Context, userID *uuid.UUID) ([]types.Persona, error) {
	var out []types.Persona
	for _, p := range s.personas {
		if p.VisibleTo(userID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type sessionKey struct {
	userID    uuid.UUID
	personaID uuid.UUID
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*types.ChatSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[sessionKey]*types.ChatSession)}
}

func (s *fakeSessionStore) GetByUserAndPersona(_ context.Context, userID, personaID uuid.UUID) (*types.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey{userID, personaID}]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *sess
	copied.Messages = append([]types.Message(nil), sess.Messages...)
	return &copied, nil
}

func (s *fakeSessionStore) AppendTurn(_ context.Context, userID, personaID uuid.UUID, userMsg, modelMsg types.Message) (*types.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{userID, personaID}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &types.ChatSession{ID: uuid.New(), UserID: userID, PersonaID: personaID}
		s.sessions[key] = sess
	}
	sess.Messages = append(sess.Messages, userMsg, modelMsg)
	sess.IsActive = true
	copied := *sess
	copied.Messages = append([]types.Message(nil), sess.Messages...)
	return &copied, nil
}

func (s *fakeSessionStore) ListByUser(_ context.Context, userID uuid.UUID) ([]types.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.ChatSession
	for key, sess := range s.sessions {
		if key.userID == userID {
			copied := *sess
			copied.Messages = append([]types.Message(nil), sess.Messages...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) SetActive(_ context.Context, sessionID, userID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == sessionID && sess.UserID == userID {
			sess.IsActive = active
			return nil
		}
	}
	return types.ErrNotFound
}

type fakeCompleter struct {
	mu          sync.Mutex
	reply       string
	err         error
	calls       int
	lastSystem  string
	lastHistory []types.Message
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt string, history []types.Message, userText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSystem = systemPrompt
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func freeUser(count int) *types.User {
	return &types.User{
		ID:                  uuid.New(),
		Name:                "Ada",
		Email:               "ada@example.com",
		Role:                types.RoleUserAccount,
		SubscriptionTier:    types.TierFree,
		MonthlyMessageCount: count,
	}
}

func defaultPersona(name string) *types.Persona {
	return &types.Persona{
		ID:           uuid.New(),
		Name:         name,
		Description:  "a test persona",
		Category:     "Test",
		SystemPrompt: "You are " + name + ".",
		Gender:       types.GenderNeutral,
		IsDefault:    true,
	}
}

type fixture struct {
	users     *fakeUserStore
	personas  *fakePersonaStore
	sessions  *fakeSessionStore
	completer *fakeCompleter
	svc       *chat.Service
}

func newFixture(user *types.User, personas ...*types.Persona) *fixture {
	f := &fixture{
		users:     newFakeUserStore(user),
		personas:  newFakePersonaStore(personas...),
		sessions:  newFakeSessionStore(),
		completer: &fakeCompleter{reply: "hello there"},
	}
	guard := quota.NewGuard(f.users, testLogger())
	f.svc = chat.NewService(guard, f.personas, f.sessions, f.completer, testLogger())
	return f
}

func TestSendMessageCreatesSessionLazily(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)

	result, err := f.svc.SendMessage(context.Background(), user.ID, persona.ID, "what is virtue?")
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Reply)
	assert.NotEqual(t, uuid.Nil, result.SessionID)

	sess, err := f.sessions.GetByUserAndPersona(context.Background(), user.ID, persona.ID)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, types.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "what is virtue?", sess.Messages[0].Text)
	assert.Equal(t, types.RoleModel, sess.Messages[1].Role)
	assert.Equal(t, "hello there", sess.Messages[1].Text)
	assert.True(t, sess.IsActive)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MonthlyMessageCount)

	// First message goes out with empty history and the persona's prompt.
	assert.Empty(t, f.completer.lastHistory)
	assert.Equal(t, persona.SystemPrompt, f.completer.lastSystem)
}

func TestConcurrentSendsShareOneSession(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	const senders = 16
	var wg sync.WaitGroup
	sessionIDs := make([]uuid.UUID, senders)
	errs := make([]error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.svc.SendMessage(ctx, user.ID, persona.ID, fmt.Sprintf("message %d", i))
			if err != nil {
				errs[i] = err
				return
			}
			sessionIDs[i] = result.SessionID
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// Racing first messages all land in the same session.
	sessions, err := f.sessions.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Messages, 2*senders)
	for _, id := range sessionIDs {
		assert.Equal(t, sessions[0].ID, id)
	}

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, senders, stored.MonthlyMessageCount)
}

func TestSendMessagePassesPersistedHistory(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "first")
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, user.ID, persona.ID, "second")
	require.NoError(t, err)

	require.Len(t, f.completer.lastHistory, 2)
	assert.Equal(t, "first", f.completer.lastHistory[0].Text)
	assert.Equal(t, "hello there", f.completer.lastHistory[1].Text)
}

func TestSendMessageQuotaExceeded(t *testing.T) {
	user := freeUser(quota.FreeMonthlyMessageLimit)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)

	_, err := f.svc.SendMessage(context.Background(), user.ID, persona.ID, "one more")
	require.ErrorIs(t, err, types.ErrQuotaExceeded)

	// Rejected without side effects: no completion call, no turns, no charge.
	assert.Zero(t, f.completer.calls)
	_, err = f.sessions.GetByUserAndPersona(context.Background(), user.ID, persona.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, quota.FreeMonthlyMessageLimit, stored.MonthlyMessageCount)
}

func TestSendMessageHundredthTurnSucceedsThenRejects(t *testing.T) {
	user := freeUser(quota.FreeMonthlyMessageLimit - 1)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "message 100")
	require.NoError(t, err)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, quota.FreeMonthlyMessageLimit, stored.MonthlyMessageCount)
	assert.Equal(t, types.TierFree, stored.SubscriptionTier)

	_, err = f.svc.SendMessage(ctx, user.ID, persona.ID, "message 101")
	require.ErrorIs(t, err, types.ErrQuotaExceeded)

	stored, err = f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, quota.FreeMonthlyMessageLimit, stored.MonthlyMessageCount)

	sess, err := f.sessions.GetByUserAndPersona(ctx, user.ID, persona.ID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)
}

func TestSendMessagePremiumUnlimited(t *testing.T) {
	user := freeUser(5000)
	user.SubscriptionTier = types.TierPremium
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)

	_, err := f.svc.SendMessage(context.Background(), user.ID, persona.ID, "hi")
	require.NoError(t, err)
}

func TestSendMessageUpstreamFailureDoesNotCharge(t *testing.T) {
	user := freeUser(7)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	f.completer.err = fmt.Errorf("%w: provider exploded", types.ErrUpstream)

	_, err := f.svc.SendMessage(context.Background(), user.ID, persona.ID, "hi")
	require.ErrorIs(t, err, types.ErrUpstream)

	stored, err := f.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.MonthlyMessageCount)

	_, err = f.sessions.GetByUserAndPersona(context.Background(), user.ID, persona.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSendMessageReactivatesHiddenSession(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	first, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, f.svc.HideSession(ctx, first.SessionID, user.ID))

	_, err = f.svc.SendMessage(ctx, user.ID, persona.ID, "are you still there?")
	require.NoError(t, err)

	sess, err := f.sessions.GetByUserAndPersona(ctx, user.ID, persona.ID)
	require.NoError(t, err)
	assert.True(t, sess.IsActive)
	assert.Len(t, sess.Messages, 4)
}

func TestSendMessageForeignPersonaLooksAbsent(t *testing.T) {
	user := freeUser(0)
	otherOwner := uuid.New()
	private := defaultPersona("Private")
	private.IsDefault = false
	private.CreatorID = &otherOwner
	f := newFixture(user, private)

	_, err := f.svc.SendMessage(context.Background(), user.ID, private.ID, "hi")
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Zero(t, f.completer.calls)
}

func TestSendMessageEmptyText(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)

	_, err := f.svc.SendMessage(context.Background(), user.ID, persona.ID, "   ")
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestHideRestoreRoundTrip(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	result, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "hello")
	require.NoError(t, err)

	before, err := f.sessions.GetByUserAndPersona(ctx, user.ID, persona.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.HideSession(ctx, result.SessionID, user.ID))
	hidden, err := f.sessions.GetByUserAndPersona(ctx, user.ID, persona.ID)
	require.NoError(t, err)
	assert.False(t, hidden.IsActive)
	assert.Equal(t, before.Messages, hidden.Messages)

	require.NoError(t, f.svc.RestoreSession(ctx, result.SessionID, user.ID))
	restored, err := f.sessions.GetByUserAndPersona(ctx, user.ID, persona.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
	assert.Equal(t, before.Messages, restored.Messages)
}

func TestHideSessionNotOwner(t *testing.T) {
	user := freeUser(0)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	result, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "hello")
	require.NoError(t, err)

	err = f.svc.HideSession(ctx, result.SessionID, uuid.New())
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestListSidebarOrdering(t *testing.T) {
	user := freeUser(0)
	aristotle := defaultPersona("Aristotle")
	plato := defaultPersona("Plato")
	zeno := defaultPersona("Zeno")
	f := newFixture(user, aristotle, plato, zeno)
	ctx := context.Background()

	// Sessions with Zeno (active) and Plato (hidden); none with Aristotle.
	_, err := f.svc.SendMessage(ctx, user.ID, zeno.ID, "hello zeno")
	require.NoError(t, err)
	platoResult, err := f.svc.SendMessage(ctx, user.ID, plato.ID, "hello plato")
	require.NoError(t, err)
	require.NoError(t, f.svc.HideSession(ctx, platoResult.SessionID, user.ID))

	entries, err := f.svc.ListSidebar(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Personas with a session first (name order), then the rest.
	assert.Equal(t, "Plato", entries[0].Persona.Name)
	require.NotNil(t, entries[0].SessionID)
	assert.False(t, entries[0].IsActive)
	assert.Len(t, entries[0].Messages, 2)

	assert.Equal(t, "Zeno", entries[1].Persona.Name)
	require.NotNil(t, entries[1].SessionID)
	assert.True(t, entries[1].IsActive)

	assert.Equal(t, "Aristotle", entries[2].Persona.Name)
	assert.Nil(t, entries[2].SessionID)
	assert.False(t, entries[2].IsActive)
	assert.Empty(t, entries[2].Messages)
}

func TestQuotaResetRestoresService(t *testing.T) {
	user := freeUser(quota.FreeMonthlyMessageLimit)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "blocked")
	require.ErrorIs(t, err, types.ErrQuotaExceeded)

	guard := quota.NewGuard(f.users, testLogger())
	n, err := guard.ResetMonthlyCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.svc.SendMessage(ctx, user.ID, persona.ID, "unblocked")
	require.NoError(t, err)
}

func TestUpgradeUnblocksAtLimitUser(t *testing.T) {
	user := freeUser(quota.FreeMonthlyMessageLimit)
	persona := defaultPersona("Socrates")
	f := newFixture(user, persona)
	ctx := context.Background()

	guard := quota.NewGuard(f.users, testLogger())
	require.NoError(t, guard.UpgradeTier(ctx, user.ID))
	// Idempotent.
	require.NoError(t, guard.UpgradeTier(ctx, user.ID))

	_, err := f.svc.SendMessage(ctx, user.ID, persona.ID, "premium now")
	require.NoError(t, err)
}
