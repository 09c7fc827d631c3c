package report

import (
	"time"

	"boneai-backend/internal/shared/util"
)

// FileName is the download name: <slug>_<YYYY-MM-DD>.pdf.
func FileName(title string, ts time.Time) string {
	return util.Slug(title, "report") + "_" + isoDate(ts) + ".pdf"
}

// AttachmentName is the email attachment name: <slug>_report_<YYYY-MM-DD>.pdf.
func AttachmentName(analysisType string, ts time.Time) string {
	return util.Slug(analysisType, "analysis") + "_report_" + isoDate(ts) + ".pdf"
}

func isoDate(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format("2006-01-02")
}
