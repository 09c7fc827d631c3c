package analyses

import (
	"time"

	"boneai-backend/internal/imagedata"
	"boneai-backend/internal/prompts"
)

// Record is a persisted analysis. Records are never updated after creation.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	TaskID     string    `json:"taskId"`
	TaskName   string    `json:"taskName"`
	ResultText string    `json:"resultText"`
	ImageURL   *string   `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Request is one analysis request as received from a client.
type Request struct {
	Image  string
	TaskID string
	Role   prompts.Role
	UserID string
}

// Result is the cleaned model output for a request.
type Result struct {
	Analysis  string
	TaskID    string
	TaskTitle string
	Image     imagedata.Image
}

// Outcome is a Result plus whatever persistence achieved.
type Outcome struct {
	Result
	PersistResult
}

// PersistInput carries everything the gateway stores.
type PersistInput struct {
	UserID     string
	TaskID     string
	TaskTitle  string
	ResultText string
	Image      []byte
	MediaType  string
}

// PersistResult reports what the gateway managed to store. Empty fields mean the step did not succeed.
type PersistResult struct {
	AnalysisID string
	ImageURL   string
}
