package report

import (
	"boneai-backend/internal/analyses"
)

const Disclaimer = "This report was generated by an AI model and is not a medical diagnosis. " +
	"Always consult a qualified healthcare professional before making treatment decisions."

// FromRecord builds the standard report for a stored analysis.
func FromRecord(rec analyses.Record) Report {
	taskName := rec.TaskName
	if taskName == "" {
		taskName = rec.TaskID
	}
	r := Report{
		Title:     "Bone Analysis Report: " + taskName,
		Timestamp: rec.CreatedAt,
		Meta: []Field{
			{Label: "Analysis Type", Value: taskName},
			{Label: "Analysis ID", Value: rec.ID},
		},
		Sections: []Section{
			{Title: "Analysis Results", Content: rec.ResultText},
			{Title: "Disclaimer", Content: Disclaimer},
		},
	}
	if rec.ImageURL != nil {
		r.ImageURL = *rec.ImageURL
	}
	return r
}
