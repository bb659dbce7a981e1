package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/gofiber/fiber/v2"

	"chat-service/chat"
	"chat-service/controller"
	"chat-service/router"
	"chat-service/store"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && regexMatch(r.act, p.act)
`

const rbacPolicy = `p, admin, /api/admin*, (GET)|(POST)|(PUT)|(DELETE)
g, 9990000000, admin
`

type stubUploader struct {
	url string
	err error
}

func (s *stubUploader) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(policyPath, []byte(rbacPolicy), 0600); err != nil {
		t.Fatal(err)
	}
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		t.Fatal(err)
	}

	svc := chat.New(store.NewMemory(), &stubUploader{url: "https://cdn.example/img.png"}, chat.PlainChecker{})
	ctrl := controller.New(svc, &stubUploader{url: "https://cdn.example/img.png"}, enforcer)

	app := fiber.New(fiber.Config{DisableStartupMessage: true, StrictRouting: true})
	router.Rest(app, ctrl, enforcer)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad response body %q: %v", raw, err)
		}
	}
	return resp, env
}

func register(t *testing.T, app *fiber.App, phone string) {
	t.Helper()
	resp, _ := doJSON(t, app, "POST", "/api/users", fiber.Map{
		"phoneNumber": phone,
		"password":    "secret",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register %s = %d, want 201", phone, resp.StatusCode)
	}
}

func TestRegisterAndConflict(t *testing.T) {
	app := newTestApp(t)

	register(t, app, "5550000001")

	resp, env := doJSON(t, app, "POST", "/api/users", fiber.Map{
		"phoneNumber": "5550000001",
		"password":    "secret",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("duplicate register = %d, want 400", resp.StatusCode)
	}
	if env.Status != "error" {
		t.Errorf("status = %q, want error", env.Status)
	}

	resp, _ = doJSON(t, app, "POST", "/api/users", fiber.Map{
		"phoneNumber": "12",
		"password":    "secret",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("invalid phone = %d, want 400", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")

	resp, env := doJSON(t, app, "POST", "/api/login", fiber.Map{
		"phoneNumber": "5550000001",
		"password":    "secret",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login = %d, want 200", resp.StatusCode)
	}
	var data struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.PhoneNumber != "5550000001" {
		t.Errorf("phoneNumber = %q", data.PhoneNumber)
	}

	resp, _ = doJSON(t, app, "POST", "/api/login", fiber.Map{
		"phoneNumber": "5550000001",
		"password":    "wrong",
	})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/login", fiber.Map{
		"phoneNumber": "5550000999",
		"password":    "secret",
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", resp.StatusCode)
	}
}

func TestUserStatus(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")

	resp, env := doJSON(t, app, "POST", "/api/user-status", fiber.Map{
		"phoneNumber": "5550000001",
		"status":      "online",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status online = %d, want 200", resp.StatusCode)
	}
	if env.Message != "User is online" {
		t.Errorf("message = %q", env.Message)
	}

	resp, _ = doJSON(t, app, "POST", "/api/user-status", fiber.Map{
		"phoneNumber": "5550000001",
		"status":      "busy",
	})
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", resp.StatusCode)
	}
}

func TestSendAndFetchMessages(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")
	register(t, app, "7770000001")

	resp, env := doJSON(t, app, "POST", "/api/messages", fiber.Map{
		"to":      "5550000001",
		"from":    "7770000001",
		"message": "hi",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("send = %d, want 201", resp.StatusCode)
	}
	var sent struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(env.Data, &sent); err != nil {
		t.Fatal(err)
	}
	if sent.MessageID == "" {
		t.Fatal("no messageId returned")
	}

	for _, phone := range []string{"5550000001", "7770000001"} {
		resp, env := doJSON(t, app, "GET", "/api/messages/"+phone, nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("fetch %s = %d, want 200", phone, resp.StatusCode)
		}
		var msgs []struct {
			ID      string `json:"id"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &msgs); err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 1 || msgs[0].ID != sent.MessageID || msgs[0].Message != "hi" {
			t.Errorf("%s inbox = %+v", phone, msgs)
		}
	}

	resp, _ = doJSON(t, app, "GET", "/api/messages/0000000000", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("fetch unknown user = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/messages", fiber.Map{
		"to":      "0000000000",
		"from":    "7770000001",
		"message": "hi",
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("send to unknown recipient = %d, want 404", resp.StatusCode)
	}
}

func TestReplyAndDelete(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")
	register(t, app, "7770000001")

	_, env := doJSON(t, app, "POST", "/api/messages", fiber.Map{
		"to":      "5550000001",
		"from":    "7770000001",
		"message": "hi",
	})
	var sent struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(env.Data, &sent); err != nil {
		t.Fatal(err)
	}

	resp, _ := doJSON(t, app, "POST", "/api/messages/reply", fiber.Map{
		"phoneNumber": "5550000001",
		"messageId":   sent.MessageID,
		"sender":      "5550000001",
		"text":        "hello back",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Errorf("reply = %d, want 201", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/messages/reply", fiber.Map{
		"phoneNumber": "5550000001",
		"messageId":   "missing",
		"sender":      "5550000001",
		"text":        "hello back",
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("reply to missing parent = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/messages/delete", fiber.Map{
		"messageId": sent.MessageID,
		"to":        "5550000001",
		"from":      "7770000001",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("delete = %d, want 200", resp.StatusCode)
	}

	_, env = doJSON(t, app, "GET", "/api/messages/5550000001", nil)
	var msgs []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Message != chat.DeletedSentinel {
		t.Errorf("inbox after delete = %+v", msgs)
	}

	resp, _ = doJSON(t, app, "POST", "/api/messages/delete", fiber.Map{
		"messageId": "missing",
		"to":        "5550000001",
		"from":      "7770000001",
	})
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("delete unknown id = %d, want 404", resp.StatusCode)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(file); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartBody(t, nil, "file", "pic.png", []byte{0x89, 0x50})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("upload = %d, want 200", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "https://cdn.example/img.png") {
		t.Errorf("body = %s", raw)
	}

	// No file part at all.
	req = httptest.NewRequest("POST", "/api/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("upload without file = %d, want 400", resp.StatusCode)
	}
}

func TestSendMessageMultipartImage(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")
	register(t, app, "7770000001")

	body, contentType := multipartBody(t, map[string]string{
		"to":   "5550000001",
		"from": "7770000001",
	}, "image", "pic.png", []byte{0x89, 0x50})
	req := httptest.NewRequest("POST", "/api/messages", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("multipart send = %d, want 201", resp.StatusCode)
	}

	_, env := doJSON(t, app, "GET", "/api/messages/5550000001", nil)
	var msgs []struct {
		ImageURL *string `json:"imageUrl"`
	}
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ImageURL == nil || *msgs[0].ImageURL != "https://cdn.example/img.png" {
		t.Errorf("inbox = %+v", msgs)
	}
}

func TestAdminMessagesRBAC(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "5550000001")

	req := httptest.NewRequest("GET", "/api/admin/messages", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("no identity = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/admin/messages", nil)
	req.Header.Set("X-Phone-Number", "5550000001")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("non-admin = %d, want 403", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/api/admin/messages", nil)
	req.Header.Set("X-Phone-Number", "9990000000")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("admin = %d, want 200", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "5550000001") {
		t.Errorf("admin listing missing registered user: %s", raw)
	}
}
