package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"gantry/api/internal/access"
)

func TestLookupDirectory(t *testing.T) {
	tests := []struct {
		username string
		wantRole access.Role
		wantOK   bool
	}{
		{"admin", access.RoleAdmin, true},
		{"proc_user", access.RoleProcurement, true},
		{"ops_user", access.RolePlanner, true},
		{"qa_user", access.RoleExecutor, true},
		{"intruder", "", false},
	}
	for _, tc := range tests {
		user, ok := Lookup(tc.username)
		if ok != tc.wantOK {
			t.Errorf("Lookup(%q) ok = %v, want %v", tc.username, ok, tc.wantOK)
			continue
		}
		if ok && user.Role != tc.wantRole {
			t.Errorf("Lookup(%q) role = %s, want %s", tc.username, user.Role, tc.wantRole)
		}
	}
}

func TestLoginAndCurrent(t *testing.T) {
	service := NewService(NewMemoryStore(), []byte("secret"), time.Hour)
	ctx := context.Background()

	user, token, err := service.Login(ctx, "proc_user")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.DisplayName != "採購小李" || user.Role != access.RoleProcurement {
		t.Fatalf("unexpected user: %+v", user)
	}

	resolved, err := service.Current(ctx, token)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if resolved.Username != "proc_user" {
		t.Fatalf("unexpected session user: %+v", resolved)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	service := NewService(NewMemoryStore(), []byte("secret"), time.Hour)
	_, _, err := service.Login(context.Background(), "intruder")
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	service := NewService(NewMemoryStore(), []byte("secret"), time.Hour)
	ctx := context.Background()

	_, token, err := service.Login(ctx, "admin")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := service.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := service.Current(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after logout, got %v", err)
	}
}

func TestCurrentRejectsTamperedToken(t *testing.T) {
	service := NewService(NewMemoryStore(), []byte("secret"), time.Hour)
	ctx := context.Background()

	_, token, err := service.Login(ctx, "qa_user")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := service.Current(ctx, token+"x"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for tampered token, got %v", err)
	}
}

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestRedisStoreSaveAndLookup(t *testing.T) {
	store, s := setupRedisStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	user, _ := Lookup("ops_user")

	if err := store.Save(ctx, "hash-1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Lookup(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Username != "ops_user" || got.Role != access.RolePlanner || got.Department != "OPERATIONS" {
		t.Fatalf("unexpected session user: %+v", got)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, s := setupRedisStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	user, _ := Lookup("admin")

	if err := store.Save(ctx, "hash-exp", user, time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.FastForward(2 * time.Millisecond)

	if _, err := store.Lookup(ctx, "hash-exp"); err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestRedisStoreRevoke(t *testing.T) {
	store, s := setupRedisStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	user, _ := Lookup("qa_user")

	if err := store.Save(ctx, "hash-rev", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Revoke(ctx, "hash-rev"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "hash-rev"); err == nil {
		t.Fatal("expected error for revoked session")
	}
	// Revoking again is a no-op.
	if err := store.Revoke(ctx, "hash-rev"); err != nil {
		t.Fatalf("repeat Revoke failed: %v", err)
	}
}

func TestServiceOverRedis(t *testing.T) {
	store, s := setupRedisStore(t)
	defer store.Close()
	defer s.Close()

	service := NewService(store, []byte("secret"), time.Hour)
	ctx := context.Background()

	_, token, err := service.Login(ctx, "admin")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	user, err := service.Current(ctx, token)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if user.Role != access.RoleAdmin {
		t.Fatalf("unexpected role: %s", user.Role)
	}
}
