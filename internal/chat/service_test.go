package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"boneai-backend/internal/llm"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/shared/storage/db"
	"boneai-backend/internal/shared/telemetry"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	return "", errors.New("unexpected")
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestReplyBuildsLanguageAwarePrompt(t *testing.T) {
	client := &fakeLLM{reply: "**Нет** перелома"}
	repo := NewMemoryRepo()
	svc := &Service{LLM: client, Repo: repo, NewID: func() string { return "chat-1" }}

	reply, err := svc.Reply(context.Background(), Request{
		Message:    "Есть ли перелом?",
		Context:    "<b>Findings</b>: intact cortex",
		Role:       prompts.RoleGeneral,
		AnalysisID: "analysis-1",
		UserID:     "user-1",
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Language.Code != "ru" {
		t.Fatalf("expected ru, got %+v", reply.Language)
	}
	if reply.Response != "<b>Нет</b> перелома" {
		t.Fatalf("unexpected response %q", reply.Response)
	}
	for _, want := range []string{"Respond only in Russian", "intact cortex", "Есть ли перелом?", prompts.FormattingDirective, "plain language"} {
		if !strings.Contains(client.prompt, want) {
			t.Fatalf("expected prompt to contain %q, got %q", want, client.prompt)
		}
	}

	stored, _ := repo.ListByAnalysis(context.Background(), "analysis-1")
	if len(stored) != 1 || stored[0].ID != "chat-1" || stored[0].AIResponse != reply.Response {
		t.Fatalf("unexpected stored interactions %+v", stored)
	}
}

func TestReplyWithoutAnalysisDoesNotRecord(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{LLM: &fakeLLM{reply: "ok"}, Repo: repo}
	if _, err := svc.Reply(context.Background(), Request{Message: "hello", Role: prompts.RoleProfessional}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(repo.byAnalysis) != 0 {
		t.Fatalf("expected nothing recorded, got %+v", repo.byAnalysis)
	}
}

func TestReplyEmptyMessage(t *testing.T) {
	_, err := (&Service{LLM: &fakeLLM{}}).Reply(context.Background(), Request{Message: "   "})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSQLRepoAppendPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	repo := &SQLRepo{DB: conn, Dialect: db.Postgres}
	in := Interaction{ID: "c1", AnalysisID: "a1", UserID: "u1", UserMessage: "q", AIResponse: "r", CreatedAt: time.Now()}
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6)")).
		WithArgs("c1", "a1", "u1", "q", "r", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(context.Background(), in); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestChatHandler(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		client llm.Client
		body   string
		status int
	}{
		{name: "ok", client: &fakeLLM{reply: "fine"}, body: `{"message":"is it broken?","userType":"common"}`, status: http.StatusOK},
		{name: "empty", client: &fakeLLM{}, body: `{"message":""}`, status: http.StatusBadRequest},
		{name: "bad json", client: &fakeLLM{}, body: `{`, status: http.StatusBadRequest},
		{name: "upstream", client: &fakeLLM{err: &llm.UpstreamError{StatusCode: 500}}, body: `{"message":"hi"}`, status: http.StatusBadGateway},
		{name: "placeholder", client: llm.PlaceholderClient{}, body: `{"message":"hi"}`, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			NewHandler(&Service{LLM: tc.client}).RegisterRoutes(r.Group("/api/v1"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
			if tc.status == http.StatusOK {
				var reply Reply
				if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if reply.Response != "fine" || reply.Language.Kind != LanguageUnknown {
					t.Fatalf("unexpected reply %+v", reply)
				}
			}
		})
	}
}
