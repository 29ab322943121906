package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"notehub/internal/auth"
	"notehub/internal/middleware"
	"notehub/internal/models"
	"notehub/internal/storage"
)

// fakeStore is an in-memory storage.Store with the same visibility rules as
// the Postgres implementation: note lookups are owner-scoped.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	notes      map[int64]*models.Note
	nextUserID int64
	nextNoteID int64
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*models.User),
		notes: make(map[int64]*models.Note),
	}
}

func (s *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, storage.ErrUserExists
	}
	s.nextUserID++
	u := &models.User{
		ID:        s.nextUserID,
		Username:  username,
		Password:  passwordHash,
		Role:      "user",
		CreatedAt: time.Now(),
	}
	s.users[username] = u
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *fakeStore) CreateNote(_ context.Context, ownerID int64, title, content string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNoteID++
	n := &models.Note{
		ID:        s.nextNoteID,
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.notes[n.ID] = n
	cp := *n
	return &cp, nil
}

func (s *fakeStore) GetNote(_ context.Context, id, ownerID int64) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, storage.ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) ListNotes(_ context.Context, ownerID int64, search string, skip, limit int) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []models.Note
	for _, n := range s.notes {
		if n.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(n.Title, search) && !strings.Contains(n.Content, search) {
			continue
		}
		notes = append(notes, *n)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })

	if skip >= len(notes) {
		return nil, nil
	}
	notes = notes[skip:]
	if limit < len(notes) {
		notes = notes[:limit]
	}
	return notes, nil
}

func (s *fakeStore) UpdateNote(_ context.Context, id, ownerID int64, title, content string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return nil, storage.ErrNoteNotFound
	}
	n.Title = title
	n.Content = content
	cp := *n
	return &cp, nil
}

func (s *fakeStore) DeleteNote(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.OwnerID != ownerID {
		return storage.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

// setRole mirrors the out-of-band role assignment the API deliberately does
// not expose.
func (s *fakeStore) setRole(username, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		u.Role = role
	}
}

func (s *fakeStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type testApp struct {
	store  *fakeStore
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := newFakeStore()
	tokens := auth.NewTokenService("test-secret", time.Minute)
	logr := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(store, tokens, logr)
	authn := middleware.NewAuthenticator(tokens, store, logr)

	return &testApp{store: store, router: h.Routes(authn)}
}

// do issues a request against the router. A url.Values body is sent
// form-encoded, anything else non-nil as JSON.
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, username, password string) map[string]any {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q: status %d, body %s", username, rec.Code, rec.Body)
	}
	return decodeMap(t, rec)
}

func (a *testApp) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", "", url.Values{
		"username": {username},
		"password": {password},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %q: status %d, body %s", username, rec.Code, rec.Body)
	}
	body := decodeMap(t, rec)
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("login %q: no access_token in %v", username, body)
	}
	return token
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body, err)
	}
	return m
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var l []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &l); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body, err)
	}
	return l
}
