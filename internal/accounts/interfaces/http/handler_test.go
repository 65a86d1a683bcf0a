package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	accounts "coldwatch/internal/accounts/domain"
	"coldwatch/internal/auth"
)

type stubUserRepo struct {
	users          map[int64]*accounts.User
	updateCalls    int
	updatedContact string
	updatedHash    string
}

func newStubUserRepo(users ...*accounts.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[int64]*accounts.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubUserRepo) Create(_ context.Context, user accounts.User) (*accounts.User, error) {
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return nil, accounts.ErrUsernameTaken
		}
	}
	user.ID = int64(len(s.users) + 1)
	s.users[user.ID] = &user
	return &user, nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id int64) (*accounts.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, accounts.ErrNotFound
}

func (s *stubUserRepo) GetByUsername(_ context.Context, username string) (*accounts.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *stubUserRepo) GetByWhatsApp(_ context.Context, contact string) (*accounts.User, error) {
	for _, u := range s.users {
		if u.WhatsApp == contact {
			return u, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *stubUserRepo) UpdateProfile(_ context.Context, id int64, whatsapp, passwordHash string) error {
	s.updateCalls++
	s.updatedContact = whatsapp
	s.updatedHash = passwordHash
	u, ok := s.users[id]
	if !ok {
		return accounts.ErrNotFound
	}
	if whatsapp != "" {
		u.WhatsApp = whatsapp
	}
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	return nil
}

func newTestHandler(t *testing.T, repo *stubUserRepo) *Handler {
	t.Helper()
	handler, err := NewHandler(repo, []byte("test-secret"), time.Hour, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func seededUser(t *testing.T, password string) *accounts.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &accounts.User{ID: 7, Username: "ana", PasswordHash: hash, WhatsApp: "5491122334455"}
}

func TestLogin_ValidCredentialsReturnsToken(t *testing.T) {
	repo := newStubUserRepo(seededUser(t, "hunter2"))
	handler := newTestHandler(t, repo)

	body := bytes.NewBufferString(`{"username":"ana","password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["token"] == "" || resp["username"] != "ana" {
		t.Fatalf("unexpected response %v", resp)
	}
	claims, err := auth.ParseJWT(resp["token"], []byte("test-secret"))
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("unexpected user id %d", claims.UserID)
	}
}

func TestLogin_WrongPasswordRejected(t *testing.T) {
	repo := newStubUserRepo(seededUser(t, "hunter2"))
	handler := newTestHandler(t, repo)

	body := bytes.NewBufferString(`{"username":"ana","password":"nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRegister_DuplicateUsernameRejected(t *testing.T) {
	repo := newStubUserRepo(seededUser(t, "hunter2"))
	handler := newTestHandler(t, repo)

	body := bytes.NewBufferString(`{"username":"ana","password":"whatever"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProfileGet_NeverExposesPasswordHash(t *testing.T) {
	user := seededUser(t, "hunter2")
	handler := newTestHandler(t, newStubUserRepo(user))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), user.ID, user.Username))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), user.PasswordHash) {
		t.Fatal("password hash leaked in profile response")
	}
	if !strings.Contains(rec.Body.String(), "5491122334455") {
		t.Fatalf("expected whatsapp contact in response, got %s", rec.Body.String())
	}
}

func TestProfilePut_WrongOldPasswordRejected(t *testing.T) {
	user := seededUser(t, "hunter2")
	repo := newStubUserRepo(user)
	handler := newTestHandler(t, repo)
	originalHash := user.PasswordHash

	body := bytes.NewBufferString(`{"password":"new-pass","oldPassword":"wrong"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), user.ID, user.Username))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if repo.updateCalls != 0 {
		t.Fatal("expected no profile update on rejected password change")
	}
	if user.PasswordHash != originalHash {
		t.Fatal("password hash must be unchanged")
	}
}

func TestProfilePut_ContactOnlyUpdateNeedsNoPassword(t *testing.T) {
	user := seededUser(t, "hunter2")
	repo := newStubUserRepo(user)
	handler := newTestHandler(t, repo)

	body := bytes.NewBufferString(`{"whatsapp":"5491199887766"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", body)
	req = req.WithContext(auth.WithIdentity(req.Context(), user.ID, user.Username))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.updateCalls != 1 || repo.updatedContact != "5491199887766" || repo.updatedHash != "" {
		t.Fatalf("unexpected update calls=%d contact=%q hash=%q",
			repo.updateCalls, repo.updatedContact, repo.updatedHash)
	}
}
