package stores_test

import (
	"errors"
	"sync"
	"testing"

	na "github.com/panyam/notesauth"
	"github.com/panyam/notesauth/stores"
)

func TestMemoryUserStoreCreateAndGet(t *testing.T) {
	store := stores.NewMemoryUserStore()

	created, err := store.CreateUser(&na.User{Email: "A@X.com", Name: "Ann", DOB: "2000-01-01"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if created.Id == "" {
		t.Error("Expected a generated user ID")
	}
	if created.Email != "a@x.com" {
		t.Errorf("Expected normalized email, got %q", created.Email)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}

	// lookup is case-insensitive on the email
	fetched, err := store.GetUserByEmail("a@X.COM")
	if err != nil {
		t.Fatalf("Failed to fetch user: %v", err)
	}
	if fetched.Id != created.Id {
		t.Errorf("Expected %s, got %s", created.Id, fetched.Id)
	}

	exists, err := store.UserExists("a@x.com")
	if err != nil || !exists {
		t.Errorf("Expected user to exist, got %v %v", exists, err)
	}
}

func TestMemoryUserStoreDuplicateEmail(t *testing.T) {
	store := stores.NewMemoryUserStore()
	if _, err := store.CreateUser(&na.User{Email: "a@x.com", Name: "Ann"}); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if _, err := store.CreateUser(&na.User{Email: "A@x.com", Name: "Imposter"}); !errors.Is(err, na.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestMemoryUserStoreMissingUser(t *testing.T) {
	store := stores.NewMemoryUserStore()
	if _, err := store.GetUserByEmail("ghost@x.com"); !errors.Is(err, na.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	exists, err := store.UserExists("ghost@x.com")
	if err != nil || exists {
		t.Errorf("Expected user to not exist, got %v %v", exists, err)
	}
}

func TestMemoryUserStoreCopyOnReturn(t *testing.T) {
	store := stores.NewMemoryUserStore()
	created, _ := store.CreateUser(&na.User{Email: "a@x.com", Name: "Ann"})

	// mutating a returned user must not touch the stored record
	created.Name = "Mallory"
	fetched, _ := store.GetUserByEmail("a@x.com")
	if fetched.Name != "Ann" {
		t.Errorf("Stored record was mutated through a returned copy: %q", fetched.Name)
	}
}

func TestMemoryUserStoreEnsureFederatedUser(t *testing.T) {
	t.Run("creates new account", func(t *testing.T) {
		store := stores.NewMemoryUserStore()
		user, err := store.EnsureFederatedUser("g@x.com", "Gia", "google-sub-1")
		if err != nil {
			t.Fatalf("Failed to ensure user: %v", err)
		}
		if user.Id == "" || user.GoogleId != "google-sub-1" || user.Name != "Gia" {
			t.Errorf("Unexpected user: %+v", user)
		}
	})

	t.Run("idempotent for same identity", func(t *testing.T) {
		store := stores.NewMemoryUserStore()
		first, _ := store.EnsureFederatedUser("g@x.com", "Gia", "google-sub-1")
		second, err := store.EnsureFederatedUser("g@x.com", "Gia", "google-sub-1")
		if err != nil {
			t.Fatalf("Failed to ensure user: %v", err)
		}
		if second.Id != first.Id {
			t.Errorf("Expected same account, got %s and %s", first.Id, second.Id)
		}
	})

	t.Run("links an existing passcode account", func(t *testing.T) {
		store := stores.NewMemoryUserStore()
		created, _ := store.CreateUser(&na.User{Email: "g@x.com", Name: "Gia", DOB: "2000-01-01"})
		ensured, err := store.EnsureFederatedUser("g@x.com", "Gia", "google-sub-1")
		if err != nil {
			t.Fatalf("Failed to ensure user: %v", err)
		}
		if ensured.Id != created.Id {
			t.Errorf("Expected the existing account, got %s vs %s", ensured.Id, created.Id)
		}
		if ensured.GoogleId != "google-sub-1" {
			t.Errorf("Expected linked Google subject, got %q", ensured.GoogleId)
		}
		// already-linked accounts keep their subject
		again, _ := store.EnsureFederatedUser("g@x.com", "Gia", "google-sub-other")
		if again.GoogleId != "google-sub-1" {
			t.Errorf("Expected original subject to stick, got %q", again.GoogleId)
		}
	})
}

func TestMemoryUserStoreConcurrentCreate(t *testing.T) {
	store := stores.NewMemoryUserStore()

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateUser(&na.User{Email: "a@x.com", Name: "Ann"}); err == nil {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("Expected exactly one create to win, got %d", createdCount)
	}
}
