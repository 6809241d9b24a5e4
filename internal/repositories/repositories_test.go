package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func oauthToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "tokens")
		if err != nil {
			t.Fatalf("NextSequence() error = %v", err)
		}
		if got != want {
			t.Errorf("NextSequence() = %d, want %d", got, want)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for unknown sequence table")
	}
}

func TestTokenRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token := models.NewToken(0, "spotify", oauthToken("a1"))

		if err := repo.Create(token); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if token.ID() == "" {
			t.Fatal("expected generated id")
		}
		if token.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", token.Sequence())
		}

		got, err := repo.Get(token.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Service() != "spotify" {
			t.Errorf("expected service spotify, got %s", got.Service())
		}
		if got.OAuth().AccessToken != "a1" || got.OAuth().RefreshToken != "refresh-a1" {
			t.Errorf("unexpected oauth fields: %+v", got.OAuth())
		}
		if got.OAuth().Expiry.IsZero() {
			t.Error("expected expiry to round trip")
		}
	})

	t.Run("Create Rejects Invalid Token", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		if err := repo.Create(models.NewToken(0, "", oauthToken("a"))); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		if _, err := repo.GetByService("spotify"); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("Save Upserts", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))

		first, err := repo.Save("spotify", oauthToken("a1"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		second, err := repo.Save("spotify", oauthToken("a2"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if first.ID() != second.ID() {
			t.Errorf("expected update in place, got ids %s and %s", first.ID(), second.ID())
		}

		got, err := repo.GetByService("spotify")
		if err != nil {
			t.Fatalf("GetByService() error = %v", err)
		}
		if got.OAuth().AccessToken != "a2" {
			t.Errorf("expected refreshed access token, got %s", got.OAuth().AccessToken)
		}
	})

	t.Run("Token Without Expiry", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		if _, err := repo.Save("spotify", &oauth2.Token{AccessToken: "x"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := repo.GetByService("spotify")
		if err != nil {
			t.Fatalf("GetByService() error = %v", err)
		}
		if !got.OAuth().Expiry.IsZero() {
			t.Errorf("expected zero expiry, got %v", got.OAuth().Expiry)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token, err := repo.Save("spotify", oauthToken("a1"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		if err := repo.Delete(token.ID()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get(token.ID()); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected deleted token to be hidden, got %v", err)
		}
		if err := repo.Delete(token.ID()); err == nil {
			t.Error("expected error deleting twice")
		}

		if _, err := repo.Save("spotify", oauthToken("a2")); err != nil {
			t.Errorf("expected new login after delete to succeed, got %v", err)
		}
	})

	t.Run("Update Missing", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token := models.NewToken(0, "spotify", oauthToken("a1"))
		token.SetID("nope")
		if err := repo.Update(token); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		for _, svc := range []string{"spotify", "lastfm"} {
			if _, err := repo.Save(svc, oauthToken(svc)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 tokens, got %d", len(all))
		}
		if all[0].Service() != "spotify" {
			t.Errorf("expected sequence order, got %s first", all[0].Service())
		}

		filtered, err := repo.List(map[string]any{"service": "lastfm"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(filtered) != 1 {
			t.Errorf("expected 1 token, got %d", len(filtered))
		}
	})
}

func TestTokenStore(t *testing.T) {
	store := NewTokenStore(NewTokenRepository(setupTestDB(t)), "spotify")

	if _, err := store.Load(); !errors.Is(err, shared.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	if err := store.Store(oauthToken("a1")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "a1" {
		t.Errorf("expected a1, got %s", got.AccessToken)
	}
}
