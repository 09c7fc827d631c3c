package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"boneai-backend/internal/llm"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/shared/telemetry"
)

var ErrEmptyMessage = errors.New("message is required")

const maxContextChars = 12000

// Request is one chat turn about an analysis.
type Request struct {
	Message    string
	Context    string
	Role       prompts.Role
	AnalysisID string
	UserID     string
}

// Reply is the cleaned assistant answer and the language it was asked to use.
type Reply struct {
	Response string   `json:"response"`
	Language Language `json:"language"`
}

// Service answers follow-up questions about an analysis.
type Service struct {
	LLM   llm.Client
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

func (s *Service) Reply(ctx context.Context, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	lang := DetectLanguage(message)

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	text, err := client.Complete(ctx, BuildPrompt(req.Role, lang, req.Context, message))
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{Response: llm.CleanEmphasis(text), Language: lang}

	if req.AnalysisID != "" && s.Repo != nil {
		s.record(ctx, req, message, reply.Response)
	}
	return reply, nil
}

func (s *Service) record(ctx context.Context, req Request, message, response string) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	err := s.Repo.Append(context.WithoutCancel(ctx), Interaction{
		ID:          id,
		AnalysisID:  req.AnalysisID,
		UserID:      req.UserID,
		UserMessage: message,
		AIResponse:  response,
		CreatedAt:   now,
	})
	if err != nil {
		telemetry.Warn("chat.record_failed", map[string]any{
			"analysis_id": req.AnalysisID,
			"error":       err.Error(),
		})
	}
}

// BuildPrompt assembles the persona, language instruction, analysis context and question.
func BuildPrompt(role prompts.Role, lang Language, analysisContext, message string) string {
	var b strings.Builder
	if role == prompts.RoleProfessional {
		b.WriteString("You are an expert musculoskeletal radiology assistant talking to a medical professional. ")
		b.WriteString("Use precise clinical terminology and reference imaging findings directly.\n")
	} else {
		b.WriteString("You are a friendly bone health assistant talking to a patient without medical training. ")
		b.WriteString("Explain findings in plain language and recommend consulting a doctor for diagnosis.\n")
	}

	if name := lang.Name(); name != "" {
		b.WriteString("The user is writing in " + name + ". Respond only in " + name + ".\n")
	} else {
		b.WriteString("Respond in the same language the user writes in.\n")
	}

	analysisContext = strings.TrimSpace(analysisContext)
	if runes := []rune(analysisContext); len(runes) > maxContextChars {
		analysisContext = string(runes[:maxContextChars])
	}
	if analysisContext != "" {
		b.WriteString("\nPrevious analysis of the user's image:\n")
		b.WriteString(analysisContext)
		b.WriteString("\n")
	}

	b.WriteString("\nUser question:\n")
	b.WriteString(message)
	b.WriteString("\n\n")
	b.WriteString(prompts.FormattingDirective)
	return b.String()
}
