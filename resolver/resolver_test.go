package resolver

import (
	"context"
	"errors"
	"testing"
)

func TestFieldFunc(t *testing.T) {
	ctx := context.Background()
	byEmail := map[string]User{
		"alice@example.com": {ID: "u1", Username: "alice", Email: "alice@example.com"},
		"bob@example.com":   {ID: "u2", Username: "bob", Email: "bob@example.com"},
	}
	r := FieldFunc(func(_ context.Context, name string) (User, bool, error) {
		u, ok := byEmail[name]
		return u, ok, nil
	})

	found, unknown, err := r.Resolve(ctx, []string{"alice@example.com", "ghost@example.com", "bob@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(found) != 2 || found[0].ID != "u1" || found[1].ID != "u2" {
		t.Fatalf("found = %+v", found)
	}
	if len(unknown) != 1 || unknown[0] != "ghost@example.com" {
		t.Fatalf("unknown = %v", unknown)
	}
}

func TestFieldFuncLookupError(t *testing.T) {
	lookupErr := errors.New("directory down")
	r := FieldFunc(func(_ context.Context, _ string) (User, bool, error) {
		return User{}, false, lookupErr
	})

	_, _, err := r.Resolve(context.Background(), []string{"alice"})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("err = %v, want %v", err, lookupErr)
	}
}
