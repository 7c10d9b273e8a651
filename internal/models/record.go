package models

import (
	"database/sql"
	"path"
	"time"

	"github.com/google/uuid"
)

// Sentinel values stored in detected_expression when inference did not
// produce a genuine label. A confidence score is never set alongside these.
const (
	StatusAnalysisFailed = "Analysis Failed"
	StatusNoPhoto        = "No Photo"
	StatusError          = "Error"
)

// IsFailureSentinel reports whether a detected_expression value is one of the
// failure placeholders rather than a model label.
func IsFailureSentinel(expression string) bool {
	switch expression {
	case StatusAnalysisFailed, StatusNoPhoto, StatusError:
		return true
	}
	return false
}

// AnalysisRecord is one stored facial expression analysis request. PhotoPath
// is relative to the media root, laid out as user_<ownerId>/<filename>.
type AnalysisRecord struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	SubjectName        string
	PhotoPath          string
	Notes              sql.NullString
	DetectedExpression sql.NullString
	ConfidenceScore    sql.NullFloat64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Filename returns the base name of the stored photo for display.
func (r *AnalysisRecord) Filename() string {
	if r.PhotoPath == "" {
		return ""
	}
	return path.Base(r.PhotoPath)
}
