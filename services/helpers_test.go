package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/gemini"
	"github.com/sahilchouksey/e-center-api/utils/cache"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.NewGORMStore(db).Init())
	return db
}

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCacheFromClient(client), mr
}

// newBrokenCache returns a cache whose Redis server has already gone away
func newBrokenCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	return cache.NewRedisCacheFromClient(client)
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type fakeCompleter struct {
	mu          sync.Mutex
	calls       int
	pings       int
	lastHistory []gemini.Turn
	lastMessage string
	err         error
	pingErr     error
}

func (f *fakeCompleter) Complete(ctx context.Context, history []gemini.Turn, message string) (*gemini.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastHistory = append([]gemini.Turn(nil), history...)
	f.lastMessage = message
	if f.err != nil {
		return nil, f.err
	}
	return &gemini.Result{Text: fmt.Sprintf("reply %d", f.calls), Model: "models/test-model", TokensUsed: 10}, nil
}

func (f *fakeCompleter) GenerateOneShot(ctx context.Context, turns []gemini.Turn) (*gemini.Result, error) {
	if len(turns) == 0 {
		return nil, &gemini.ServiceError{Kind: gemini.KindUnknown, Message: "no turns"}
	}
	last := turns[len(turns)-1]
	return f.Complete(ctx, turns[:len(turns)-1], last.Text)
}

func (f *fakeCompleter) Ping(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.pingErr != nil {
		return "", f.pingErr
	}
	return "API is working", nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompleter) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}
