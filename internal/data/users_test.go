package data

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/PaulBabatuyi/wasteConnect/internal/db"
)

func setupDB(t *testing.T) *db.Client {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}

	ctx := context.Background()
	c, err := db.New(ctx, uri, "wasteconnect_test")
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}

	// ensure clean collections in case previous runs left data
	_ = c.UsersCollection().Drop(ctx)
	_ = c.MessagesCollection().Drop(ctx)
	_ = c.PickupsCollection().Drop(ctx)
	_ = c.RecyclingsCollection().Drop(ctx)
	_ = c.VolunteersCollection().Drop(ctx)

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestUsersCreateAndGet(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())

	ctx := context.Background()
	email := time.Now().UTC().Format("20060102-150405") + "-integration@example.com"

	user, err := users.CreateUser(ctx, "Integration", "  "+email, "hashed-password", RoleUser)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Email != email {
		t.Fatalf("expected email %s got %s", email, user.Email)
	}

	if _, err := users.CreateUser(ctx, "Again", email, "x", RoleUser); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	u2, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if u2.Password != "hashed-password" {
		t.Fatalf("GetUserByEmail returned wrong hash: %s", u2.Password)
	}

	got, err := users.GetUserByID(ctx, user.ID.Hex())
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Email != email {
		t.Fatalf("GetUserByID returned wrong email: %s", got.Email)
	}

	if _, err := users.GetUserByID(ctx, "not-hex"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bad id, got %v", err)
	}
	if _, err := users.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
}

func TestUsersListExcept(t *testing.T) {
	c := setupDB(t)
	users := NewUsersStore(c.UsersCollection())
	ctx := context.Background()

	zed, err := users.CreateUser(ctx, "Zed", "zed@example.com", "h", RoleUser)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := users.CreateUser(ctx, "Amy", "amy@example.com", "h", RoleVolunteer); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := users.CreateUser(ctx, "Bob", "bob@example.com", "h", RoleAdmin); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	list, err := users.ListUsersExcept(ctx, zed.ID.Hex())
	if err != nil {
		t.Fatalf("ListUsersExcept failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Amy" || list[1].Name != "Bob" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
