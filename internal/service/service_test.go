package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/inventory-admin/internal/memstore"
	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/queue"
	"github.com/iliyamo/inventory-admin/internal/utils"
)

const goodPassword = "Abcdef12"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	users  *memstore.Users
	roles  *memstore.Roles
	tokens *recordingTokens
	events *recordingEvents
	clock  *testClock
	issuer *utils.TokenIssuer
	svc    *AuthService
	gate   *Gate
	roleID uint64
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// recordingTokens keeps a copy of every persisted record.
type recordingTokens struct {
	*memstore.Tokens
	mu        sync.Mutex
	persisted map[string]model.TokenRecord
}

func (r *recordingTokens) Persist(ctx context.Context, rec model.TokenRecord) error {
	r.mu.Lock()
	r.persisted[rec.ID] = rec
	r.mu.Unlock()
	return r.Tokens.Persist(ctx, rec)
}

func (r *recordingTokens) get(id string) (model.TokenRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.persisted[id]
	return rec, ok
}

// recordingEvents records published auth events.
type recordingEvents struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (e *recordingEvents) Publish(_ context.Context, ev queue.AuthEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *recordingEvents) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		users:  memstore.NewUsers(),
		roles:  memstore.NewRoles(),
		tokens: &recordingTokens{Tokens: memstore.NewTokens(), persisted: map[string]model.TokenRecord{}},
		events: &recordingEvents{},
		clock:  &testClock{t: time.Now().UTC().Truncate(time.Second)},
	}
	issuer, err := utils.NewTokenIssuer("service-test-secret", 24*time.Hour, utils.WithClock(f.clock.Now))
	require.NoError(t, err)
	f.issuer = issuer

	opts.BcryptCost = bcrypt.MinCost
	opts.Now = f.clock.Now
	f.svc = NewAuthService(f.users, f.roles, f.tokens, issuer, f.events, opts, quietLogger())
	f.gate = NewGate(issuer, f.tokens, f.users, time.Second, quietLogger())

	f.roleID, err = f.roles.Create(context.Background(), "manager", model.NewAccessSet("products:write", "roles:read"))
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, email string) model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ada", Email: email, Password: goodPassword, RoleID: f.roleID, Telephone: "+441234567",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) login(t *testing.T, email string) LoginResult {
	t.Helper()
	res, err := f.svc.Login(context.Background(), LoginInput{Email: email, Password: goodPassword})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	se, ok := err.(*Error)
	require.True(t, ok, "expected *service.Error, got %T: %v", err, err)
	require.Equal(t, kind, se.Kind, "error: %v", err)
	return se
}
