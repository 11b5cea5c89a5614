package service

import (
	"context"
	"course-advisor-go/pkg/token"
	"errors"
	"testing"
)

type userFixture struct {
	svc      UserService
	users    *memUserRepo
	sessions *memSessionRepo
	events   *recordingPublisher
	jwt      *token.JWTManager
}

func newUserFixture() userFixture {
	f := userFixture{
		users:    newMemUserRepo(),
		sessions: newMemSessionRepo(),
		events:   &recordingPublisher{},
		jwt:      token.NewJWTManager("test-secret", 1, 1),
	}
	f.svc = NewUserService(f.users, f.sessions, f.jwt, f.events)
	return f
}

func TestSignupDuplicateDoesNotOverwriteHash(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, "alice", "pw1-secret"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	original, _ := f.users.FindByUsername(ctx, "alice")

	if _, err := f.svc.Signup(ctx, "alice", "pw2-secret"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	after, _ := f.users.FindByUsername(ctx, "alice")
	if after.Password != original.Password {
		t.Fatalf("password hash must not be overwritten")
	}
	if after.Password == "pw1-secret" {
		t.Fatalf("password must be stored hashed")
	}

	if _, err := f.svc.SignIn(ctx, "alice", "pw1-secret"); err != nil {
		t.Fatalf("original password should still work: %v", err)
	}
}

func TestSignInFailures(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, "bob", "right-password"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := f.svc.SignIn(ctx, "bob", "wrong"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("expected ErrBadPassword, got %v", err)
	}
	if _, err := f.svc.SignIn(ctx, "carol", "whatever"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if ok, _ := f.svc.IsSignedIn(ctx, "bob"); ok {
		t.Fatalf("failed sign-in must not create a session")
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, "dave", "password1"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := f.svc.SignOut(ctx, "dave"); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("sign-out before sign-in: expected ErrNotSignedIn, got %v", err)
	}

	tokens, err := f.svc.SignIn(ctx, "dave", "password1")
	if err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.ExpiresIn != 3600 {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	claims, err := f.jwt.VerifyToken(tokens.AccessToken)
	if err != nil || claims.Username != "dave" {
		t.Fatalf("access token: claims=%+v err=%v", claims, err)
	}
	if ok, _ := f.svc.IsSignedIn(ctx, "dave"); !ok {
		t.Fatalf("expected dave to be signed in")
	}

	refreshed, err := f.svc.RefreshToken(ctx, tokens.RefreshToken)
	if err != nil || refreshed.AccessToken == "" {
		t.Fatalf("refresh: %+v err=%v", refreshed, err)
	}
	if _, err := f.svc.RefreshToken(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	if err := f.svc.SignOut(ctx, "dave"); err != nil {
		t.Fatalf("sign-out: %v", err)
	}
	if ok, _ := f.svc.IsSignedIn(ctx, "dave"); ok {
		t.Fatalf("expected dave to be signed out")
	}
	if _, err := f.svc.RefreshToken(ctx, tokens.RefreshToken); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("refresh after sign-out: expected ErrNotSignedIn, got %v", err)
	}

	want := []string{EventUserSignedUp, EventUserSignedIn, EventUserSignedOut}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: got=%v want=%v", got, want)
		}
	}
}

func TestGetProfile(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, "erin", "password1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	u, err := f.svc.GetProfile(ctx, "erin")
	if err != nil || u.Username != "erin" || u.Role != "USER" {
		t.Fatalf("GetProfile: %+v err=%v", u, err)
	}
	if _, err := f.svc.GetProfile(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
