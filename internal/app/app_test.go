package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/mocks"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	redis_repo "github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/redis"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := mocks.CreateTestConfig()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.DatabaseSettings = fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
	return cfg
}

func buildTestApp(t *testing.T, cfg *config.Config, transport *mocks.MockMailTransport) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg, WithMailTransport(transport))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	transport := new(mocks.MockMailTransport)
	var sent []models.MailMessage
	transport.On("Send", mock.Anything, mock.AnythingOfType("models.MailMessage")).
		Run(func(args mock.Arguments) { sent = append(sent, args.Get(1).(models.MailMessage)) }).
		Return(nil)

	a := buildTestApp(t, newTestConfig(t), transport)
	assert.IsType(t, &memory.MemoryTokenRepository{}, a.Tokens)

	res, err := a.Accounts.Register(ctx, models.RegisterRequest{
		Email: "Carol@Example.com", Username: "carol", Password: "s3cret-pass", RedirectURL: "https://app.example.com",
	})
	require.NoError(t, err)
	require.True(t, res.EmailSent)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "https://auth.example.com/confirm?id=")

	user, err := a.Users.GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.True(t, strings.HasPrefix(user.PasswordHash, config.HashPBKDF2SHA256+"$1000$"))

	require.NoError(t, a.Accounts.Confirm(ctx, res.UserID, user.Token))
	_, err = a.Accounts.Login(ctx, "carol@example.com", "s3cret-pass")
	require.NoError(t, err)

	key, err := a.Accounts.IssueAPIKey(ctx, res.UserID)
	require.NoError(t, err)
	id, ok := a.Accounts.VerifyAPIKey(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, res.UserID, id)
}

func TestBuild_RedisTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := newTestConfig(t)
	cfg.Token.Store = config.TokenStoreRedis
	cfg.RedisSettings.Address = mr.Addr()

	a := buildTestApp(t, cfg, new(mocks.MockMailTransport))
	require.IsType(t, &redis_repo.RedisTokenRepository{}, a.Tokens)

	token, err := a.Tokens.Generate(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, mr.Exists("token:"+token))
	assert.True(t, a.Tokens.Consume(context.Background(), token))
	assert.False(t, mr.Exists("token:"+token))
}

func TestBuild_Errors(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DatabaseDriver = "oracle"
	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported database driver")

	cfg = newTestConfig(t)
	cfg.Token.Store = config.TokenStoreRedis
	cfg.RedisSettings.Address = "127.0.0.1:1"
	_, err = Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "failed connecting to redis")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Token.SweepInterval = 10 * time.Millisecond
	a := buildTestApp(t, cfg, new(mocks.MockMailTransport))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
