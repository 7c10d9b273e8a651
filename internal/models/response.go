package models

import "time"

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type QueryResponse struct {
	ID                 string    `json:"id"`
	SubjectName        string    `json:"subject_name"`
	PhotoPath          string    `json:"photo_path"`
	Filename           string    `json:"filename"`
	Notes              string    `json:"notes,omitempty"`
	DetectedExpression string    `json:"detected_expression,omitempty"`
	ConfidenceScore    *float64  `json:"confidence_score,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	// Notice carries a user-visible message about the analysis outcome,
	// set when analysis did not succeed.
	Notice string `json:"notice,omitempty"`
}

type QuerySummary struct {
	ID                 string    `json:"id"`
	SubjectName        string    `json:"subject_name"`
	Filename           string    `json:"filename"`
	DetectedExpression string    `json:"detected_expression,omitempty"`
	ConfidenceScore    *float64  `json:"confidence_score,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type QueryListResponse struct {
	Data       []QuerySummary `json:"data"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

type DeleteConfirmResponse struct {
	Query         QuerySummary `json:"query"`
	ConfirmMethod string       `json:"confirm_method"`
	ConfirmPath   string       `json:"confirm_path"`
}

type DeleteResponse struct {
	Message string `json:"message"`
	// Warning is set when the database row was removed but the backing
	// file could not be; the deletion is still considered successful.
	Warning string `json:"warning,omitempty"`
}

type HomeResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// NewQueryResponse maps a stored record onto the wire shape. Failure
// sentinels are exposed in detected_expression exactly as persisted.
func NewQueryResponse(r *AnalysisRecord) QueryResponse {
	resp := QueryResponse{
		ID:          r.ID.String(),
		SubjectName: r.SubjectName,
		PhotoPath:   r.PhotoPath,
		Filename:    r.Filename(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Notes.Valid {
		resp.Notes = r.Notes.String
	}
	if r.DetectedExpression.Valid {
		resp.DetectedExpression = r.DetectedExpression.String
	}
	if r.ConfidenceScore.Valid {
		score := r.ConfidenceScore.Float64
		resp.ConfidenceScore = &score
	}
	return resp
}

func NewQuerySummary(r *AnalysisRecord) QuerySummary {
	summary := QuerySummary{
		ID:          r.ID.String(),
		SubjectName: r.SubjectName,
		Filename:    r.Filename(),
		CreatedAt:   r.CreatedAt,
	}
	if r.DetectedExpression.Valid {
		summary.DetectedExpression = r.DetectedExpression.String
	}
	if r.ConfidenceScore.Valid {
		score := r.ConfidenceScore.Float64
		summary.ConfidenceScore = &score
	}
	return summary
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
