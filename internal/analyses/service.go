package analyses

import (
	"context"
	"strings"
	"time"

	"boneai-backend/internal/imagedata"
	"boneai-backend/internal/llm"
	"boneai-backend/internal/prompts"
	"boneai-backend/internal/shared/metrics"
	"boneai-backend/internal/shared/telemetry"
)

const defaultPersistTimeout = 30 * time.Second

// Service orchestrates image analysis and best-effort persistence.
type Service struct {
	LLM            llm.Client
	Gateway        *Gateway
	Repo           Repo
	PersistTimeout time.Duration
}

// Invoke validates the request, builds the task prompt and asks the model to analyse the image.
func (s *Service) Invoke(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Image) == "" {
		return Result{}, &ValidationError{Field: "image", Reason: "is required"}
	}
	taskID := strings.TrimSpace(req.TaskID)
	if taskID == "" {
		return Result{}, &ValidationError{Field: "taskId", Reason: "is required"}
	}

	img, err := imagedata.Normalize(req.Image)
	if err != nil {
		return Result{}, err
	}

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	text, err := client.AnalyzeImage(ctx, llm.ImageInput{
		Prompt:    prompts.GetPrompt(taskID, req.Role),
		MediaType: img.MediaType,
		Data:      img.Bytes,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Analysis:  llm.CleanEmphasis(text),
		TaskID:    taskID,
		TaskTitle: prompts.Title(taskID),
		Image:     img,
	}, nil
}

// Analyze runs Invoke and, for identified callers, persists the image and result.
func (s *Service) Analyze(ctx context.Context, req Request) (Outcome, error) {
	metrics.IncAnalysisStarted()
	start := time.Now()
	res, err := s.Invoke(ctx, req)
	metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncAnalysisFailed()
		return Outcome{}, err
	}
	metrics.IncAnalysisCompleted()
	metrics.IncAnalysisByTask(res.TaskID)

	out := Outcome{Result: res}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || s.Gateway == nil {
		return out, nil
	}

	// The analysis is already paid for; a client disconnect must not abort storing it.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout())
	defer cancel()
	out.PersistResult = s.Gateway.Persist(persistCtx, PersistInput{
		UserID:     userID,
		TaskID:     res.TaskID,
		TaskTitle:  res.TaskTitle,
		ResultText: res.Analysis,
		Image:      res.Image.Bytes,
		MediaType:  res.Image.MediaType,
	})
	telemetry.Info("analysis.persisted", map[string]any{
		"request_id":  telemetry.RequestID(ctx),
		"task_id":     res.TaskID,
		"analysis_id": out.AnalysisID,
		"has_image":   out.ImageURL != "",
	})
	return out, nil
}

// Get returns a stored analysis.
func (s *Service) Get(ctx context.Context, analysisID string) (Record, error) {
	if s.Repo == nil {
		return Record{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// List returns a user's analyses, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if s.Repo == nil {
		return []Record{}, nil
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) persistTimeout() time.Duration {
	if s.PersistTimeout > 0 {
		return s.PersistTimeout
	}
	return defaultPersistTimeout
}
