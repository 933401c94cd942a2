package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dbchat/dbchat/internal/agent"
	"github.com/dbchat/dbchat/internal/auth"
	"github.com/dbchat/dbchat/internal/chat"
	"github.com/dbchat/dbchat/internal/config"
	"github.com/dbchat/dbchat/internal/nl2sql"
	"github.com/dbchat/dbchat/internal/schema"
)

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{
		Readiness: PingDatabase(fakePinger{err: errors.New("connection refused")}),
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "NOT_READY" || body["retryable"] != true {
		t.Fatalf("body = %#v", body)
	}
}

func TestReadyEndpointPingsDatabase(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Readiness: PingDatabase(fakePinger{})})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"DBCHAT_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("k1:alice:chat_user")
	if err != nil {
		t.Fatalf("validator setup failed: %v", err)
	}

	h := NewHandler(cfg, Dependencies{
		AuthMiddleware: auth.Middleware(nil, validator),
		Chat:           newChatService(t, &fakeRunner{}),
		Schema:         fakeSchema{},
	})

	unauthResp := httptest.NewRecorder()
	h.ServeHTTP(unauthResp, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if unauthResp.Code != http.StatusUnauthorized {
		t.Fatalf("unauth status = %d", unauthResp.Code)
	}

	authReq := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	authReq.Header.Set("X-API-Key", "k1")
	authResp := httptest.NewRecorder()
	h.ServeHTTP(authResp, authReq)
	if authResp.Code != http.StatusCreated {
		t.Fatalf("auth status = %d", authResp.Code)
	}

	schemaReq := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	schemaReq.Header.Set("X-API-Key", "k1")
	schemaResp := httptest.NewRecorder()
	h.ServeHTTP(schemaResp, schemaReq)
	if schemaResp.Code != http.StatusForbidden {
		t.Fatalf("schema status = %d", schemaResp.Code)
	}
}

func TestAuthRequiredWithoutMiddlewareFailsClosed(t *testing.T) {
	h := NewHandler(loadConfig(t, map[string]string{"DBCHAT_AUTH_REQUIRED": "true"}), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestChatConversationFlow(t *testing.T) {
	runner := &fakeRunner{reply: "Totals per user.\n| User | Total |\n|---|---|\n| Jane | 10 |\n| John | 7 |\n"}
	h := NewHandler(loadConfig(t, nil), Dependencies{Chat: newChatService(t, runner)})

	rr := serve(h, http.MethodPost, "/v1/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	sessionID, _ := decodeBody(t, rr)["session_id"].(string)
	if sessionID == "" {
		t.Fatal("missing session_id")
	}

	rr = serve(h, http.MethodPost, "/v1/sessions/"+sessionID+"/turns", `{"question":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("greeting status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["content"] != chat.GreetingReply || runner.calls != 0 {
		t.Fatalf("greeting body = %s, runner calls = %d", rr.Body.String(), runner.calls)
	}

	rr = serve(h, http.MethodPost, "/v1/sessions/"+sessionID+"/turns", `{"question":"plot a bar chart of totals by user"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body=%s", rr.Code, rr.Body.String())
	}
	var turn chat.Turn
	if err := json.Unmarshal(rr.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.Index != 3 || turn.Payload == nil || turn.Payload.Mode != chat.ModeChart || turn.Payload.ChartType != "bar" {
		t.Fatalf("turn = %+v", turn)
	}

	rr = serve(h, http.MethodGet, "/v1/sessions/"+sessionID+"/turns/3/chart", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") || !strings.Contains(rr.Body.String(), "echarts") {
		t.Fatalf("chart response = %q", rr.Header().Get("Content-Type"))
	}

	rr = serve(h, http.MethodGet, "/v1/sessions/"+sessionID+"/turns/1/chart", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("greeting chart status = %d", rr.Code)
	}
	rr = serve(h, http.MethodGet, "/v1/sessions/"+sessionID+"/turns/9/chart", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing turn status = %d", rr.Code)
	}
	rr = serve(h, http.MethodGet, "/v1/sessions/"+sessionID+"/turns/x/chart", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad turn status = %d", rr.Code)
	}

	rr = serve(h, http.MethodGet, "/v1/sessions/"+sessionID+"/turns", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}
	turns, _ := decodeBody(t, rr)["turns"].([]any)
	if len(turns) != 4 {
		t.Fatalf("history length = %d", len(turns))
	}
}

func TestAskErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("model unavailable")}
	h := NewHandler(loadConfig(t, nil), Dependencies{Chat: newChatService(t, runner)})
	sessionID, _ := decodeBody(t, serve(h, http.MethodPost, "/v1/sessions", ""))["session_id"].(string)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown session", "/v1/sessions/nope/turns", `{"question":"how many users?"}`, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"bad json", "/v1/sessions/" + sessionID + "/turns", `{"q":1}`, http.StatusBadRequest, "INVALID_JSON"},
		{"empty question", "/v1/sessions/" + sessionID + "/turns", `{"question":"  "}`, http.StatusBadRequest, "QUESTION_REQUIRED"},
		{"agent failure", "/v1/sessions/" + sessionID + "/turns", `{"question":"how many users?"}`, http.StatusBadGateway, "AGENT_FAILED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(h, http.MethodPost, tc.path, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d, body=%s", rr.Code, tc.status, rr.Body.String())
			}
			if code := decodeBody(t, rr)["error_code"]; code != tc.code {
				t.Fatalf("error_code = %v, want %s", code, tc.code)
			}
		})
	}
}

func TestSchemaEndpoint(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Schema: fakeSchema{}, Dialect: "PostgreSQL"})
	rr := serve(h, http.MethodGet, "/v1/schema", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	tables, ok := body["tables"].([]any)
	if !ok || len(tables) != 2 || body["schema"] != "public" || body["dialect"] != "PostgreSQL" {
		t.Fatalf("body = %#v", body)
	}
}

func TestTranslateEndpointReturnsSQL(t *testing.T) {
	translator := &fakeTranslator{result: nl2sql.Result{SQL: "SELECT 1", Provider: "fake", Model: "fake-model"}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Schema: fakeSchema{}, Dialect: "PostgreSQL", Translator: translator})

	rr := serve(h, http.MethodPost, "/v1/sql/translate", `{"prompt":"count users"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["sql"] != "SELECT 1" || body["model"] != "fake-model" {
		t.Fatalf("body = %#v", body)
	}
	if translator.last.NaturalLanguage != "count users" || len(translator.last.Tables) != 2 || len(translator.last.Relationships) != 1 {
		t.Fatalf("request = %+v", translator.last)
	}

	if rr := serve(h, http.MethodPost, "/v1/sql/translate", `{"prompt":""}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", rr.Code)
	}

	translator.err = errors.New("upstream 500")
	if rr := serve(h, http.MethodPost, "/v1/sql/translate", `{"prompt":"count users"}`); rr.Code != http.StatusBadGateway {
		t.Fatalf("failure status = %d", rr.Code)
	}

	unconfigured := NewHandler(loadConfig(t, nil), Dependencies{})
	if rr := serve(unconfigured, http.MethodPost, "/v1/sql/translate", `{"prompt":"count users"}`); rr.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured status = %d", rr.Code)
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestUIHandlerServesNonAPIRoutes(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>ok</html>")
		}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(context.Context) error {
	return f.err
}

type fakeRunner struct {
	reply string
	err   error
	calls int
}

func (f *fakeRunner) Run(context.Context, string) (*agent.RunResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &agent.RunResult{FinalText: f.reply, Rounds: 2}, nil
}

func (f *fakeRunner) ToolNames() []string {
	return []string{agent.ToolListTables, agent.ToolGetSchema, agent.ToolExecuteSQL}
}

type fakeSchema struct{}

func (fakeSchema) SchemaName() string { return "public" }

func (fakeSchema) Snapshot(context.Context) schema.Snapshot {
	return schema.Snapshot{
		Tables: []string{"orders", "users"},
		Columns: map[string][]schema.Column{
			"orders": {{Name: "order_id", DataType: "integer"}, {Name: "user_id", DataType: "integer"}},
			"users":  {{Name: "user_id", DataType: "integer"}, {Name: "name", DataType: "character varying"}},
		},
		Relationships: []schema.Relationship{{
			Constraint:    "orders_user_id_fkey",
			ChildTable:    "orders",
			ChildColumns:  []string{"user_id"},
			ParentTable:   "users",
			ParentColumns: []string{"user_id"},
		}},
	}
}

type fakeTranslator struct {
	result nl2sql.Result
	err    error
	last   nl2sql.Request
}

func (f *fakeTranslator) Translate(_ context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	f.last = req
	if f.err != nil {
		return nl2sql.Result{}, f.err
	}
	return f.result, nil
}

func newChatService(t *testing.T, runner chat.Runner) *chat.Service {
	t.Helper()
	store := chat.NewStore(time.Hour)
	t.Cleanup(store.Close)
	return chat.NewService(store, runner, nil)
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v (body=%s)", err, rr.Body.String())
	}
	return body
}

func loadConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("dbchat-api", mapLookup(env))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
