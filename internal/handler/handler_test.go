package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/config"
	"relaychat/internal/hub"
	"relaychat/internal/repository/memory"
	"relaychat/internal/service"
)

func newTestServer(t *testing.T) (http.Handler, *memory.MessageRepository) {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	store := memory.NewMessageRepository()
	users := service.NewUserService(memory.NewUserRepository(), "test-secret")
	h := New(cfg, zerolog.Nop(), hub.NewHub(store, zerolog.Nop()), users, store)
	return h.Router(), store
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newTestServer(t)

	rec := postJSON(t, router, "/api/auth/register", credentialsRequest{Username: "alice", Password: "s3cret"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d, body %s", rec.Code, rec.Body.String())
	}
	var created authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Username != "alice" || created.ID == "" || created.Token == "" {
		t.Fatalf("incomplete register response: %+v", created)
	}

	rec = postJSON(t, router, "/api/auth/register", credentialsRequest{Username: "alice", Password: "other"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: got %d, want 400", rec.Code)
	}

	rec = postJSON(t, router, "/api/auth/login", credentialsRequest{Username: "alice", Password: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body.String())
	}
	var logged authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if logged.ID != created.ID || logged.Token == "" {
		t.Fatalf("unexpected login response: %+v", logged)
	}

	rec = postJSON(t, router, "/api/auth/login", credentialsRequest{Username: "alice", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: got %d, want 401", rec.Code)
	}
	rec = postJSON(t, router, "/api/auth/login", credentialsRequest{Username: "nobody", Password: "s3cret"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: got %d, want 401", rec.Code)
	}
}

func TestGetMessagesValidation(t *testing.T) {
	router, _ := newTestServer(t)

	if rec := get(router, "/api/messages"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing room: got %d, want 400", rec.Code)
	}
	if rec := get(router, "/api/messages?room=general&before=yesterday"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad cursor: got %d, want 400", rec.Code)
	}
}

func TestGetMessagesPaginatesBackward(t *testing.T) {
	router, store := newTestServer(t)
	for i := 0; i < 25; i++ {
		if _, err := store.Append(context.Background(), "general", "seed", fmt.Sprintf("m%02d", i), "", ""); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := get(router, "/api/messages?room=general&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("first page: got %d, body %s", rec.Code, rec.Body.String())
	}
	var first messagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode first page: %v", err)
	}
	if len(first.Messages) != 10 || !first.HasMore {
		t.Fatalf("first page: %d messages, hasMore=%v", len(first.Messages), first.HasMore)
	}
	if first.Messages[0].Text != "m15" || first.Messages[9].Text != "m24" {
		t.Fatalf("first page order wrong: %s .. %s", first.Messages[0].Text, first.Messages[9].Text)
	}

	cursor := first.Messages[0].CreatedAt.Format(time.RFC3339Nano)
	rec = get(router, "/api/messages?room=general&limit=10&before="+cursor+"&beforeId="+first.Messages[0].ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("second page: got %d", rec.Code)
	}
	var second messagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode second page: %v", err)
	}
	if len(second.Messages) != 10 || !second.HasMore {
		t.Fatalf("second page: %d messages, hasMore=%v", len(second.Messages), second.HasMore)
	}
	if second.Messages[0].Text != "m05" || second.Messages[9].Text != "m14" {
		t.Fatalf("second page order wrong: %s .. %s", second.Messages[0].Text, second.Messages[9].Text)
	}

	cursor = second.Messages[0].CreatedAt.Format(time.RFC3339Nano)
	rec = get(router, "/api/messages?room=general&limit=10&before="+cursor+"&beforeId="+second.Messages[0].ID)
	var last messagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
		t.Fatalf("decode last page: %v", err)
	}
	if len(last.Messages) != 5 || last.HasMore {
		t.Fatalf("last page: %d messages, hasMore=%v", len(last.Messages), last.HasMore)
	}
	if last.Messages[0].Text != "m00" {
		t.Fatalf("last page should start at the beginning, got %s", last.Messages[0].Text)
	}
}

func TestGetMessagesEmptyRoom(t *testing.T) {
	router, _ := newTestServer(t)

	rec := get(router, "/api/messages?room=empty")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var resp messagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Messages == nil || len(resp.Messages) != 0 || resp.HasMore {
		t.Fatalf("expected empty page, got %+v", resp)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	router, _ := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("hello upload")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	fileURL := resp["fileUrl"]
	if !strings.HasPrefix(fileURL, "/uploads/") || !strings.HasSuffix(fileURL, "-notes.txt") {
		t.Fatalf("unexpected fileUrl: %q", fileURL)
	}

	// The returned reference must be servable.
	fetched := get(router, fileURL)
	if fetched.Code != http.StatusOK {
		t.Fatalf("fetch uploaded file: got %d", fetched.Code)
	}
	if fetched.Body.String() != "hello upload" {
		t.Fatalf("uploaded content mismatch: %q", fetched.Body.String())
	}
}

func TestUploadWithoutFileRejected(t *testing.T) {
	router, _ := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("note", "no file here")
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestUploadFilenameIsSanitized(t *testing.T) {
	router, _ := newTestServer(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "../escape.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("x"))
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload: got %d", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if strings.Contains(resp["fileUrl"], "..") {
		t.Fatalf("path traversal leaked into fileUrl: %q", resp["fileUrl"])
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := get(router, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUploadDirCreatedOnDemand(t *testing.T) {
	cfg := &config.Config{
		Env:            "test",
		UploadDir:      filepath.Join(t.TempDir(), "nested", "uploads"),
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	store := memory.NewMessageRepository()
	users := service.NewUserService(memory.NewUserRepository(), "test-secret")
	router := New(cfg, zerolog.Nop(), hub.NewHub(store, zerolog.Nop()), users, store).Router()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, _ := form.CreateFormFile("file", "a.txt")
	part.Write([]byte("a"))
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	entries, err := os.ReadDir(cfg.UploadDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one stored file, err=%v entries=%d", err, len(entries))
	}
}
