package oauthstate_test

import (
	"testing"
	"time"

	"github.com/raaulc/shared-tasks/internal/app/store/oauthstate"
	"github.com/raaulc/shared-tasks/internal/testutil"
)

func TestStore_SaveAndValidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "state-abc", "/somewhere", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	returnURL, valid, err := store.Validate(ctx, "state-abc")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !valid {
		t.Fatal("expected state to be valid")
	}
	if returnURL != "/somewhere" {
		t.Errorf("return URL: got %q, want %q", returnURL, "/somewhere")
	}
}

func TestStore_ValidateIsOneTimeUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "state-once", "", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, valid, _ := store.Validate(ctx, "state-once"); !valid {
		t.Fatal("first validation should succeed")
	}
	if _, valid, _ := store.Validate(ctx, "state-once"); valid {
		t.Error("second validation must fail, states are one-time use")
	}
}

func TestStore_ValidateUnknownState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, valid, err := store.Validate(ctx, "never-saved")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if valid {
		t.Error("unknown state must be invalid")
	}
}

func TestStore_ValidateExpiredState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, "state-old", "", time.Now().Add(-1*time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_, valid, err := store.Validate(ctx, "state-old")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if valid {
		t.Error("expired state must be invalid")
	}
}
