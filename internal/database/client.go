package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facequery-backend/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by
	// the requesting user. Callers never learn which.
	ErrNotFound = errors.New("not found")

	ErrDuplicateUsername = errors.New("username already taken")
)

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) CreateUser(user *models.User) error {
	err := c.db.QueryRow(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, user.ID, user.Username, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (c *Client) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := c.db.QueryRow(`
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (c *Client) CreateQuery(record *models.AnalysisRecord) error {
	err := c.db.QueryRow(`
		INSERT INTO analysis_records (id, user_id, subject_name, photo_path, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, record.ID, record.UserID, record.SubjectName, record.PhotoPath, record.Notes).Scan(
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis record: %w", err)
	}
	return nil
}

func (c *Client) GetQuery(recordID, userID uuid.UUID) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := c.db.QueryRow(`
		SELECT id, user_id, subject_name, photo_path, notes,
		       detected_expression, confidence_score, created_at, updated_at
		FROM analysis_records
		WHERE id = $1 AND user_id = $2
	`, recordID, userID).Scan(
		&record.ID, &record.UserID, &record.SubjectName, &record.PhotoPath, &record.Notes,
		&record.DetectedExpression, &record.ConfidenceScore, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis record: %w", err)
	}
	return &record, nil
}

func (c *Client) ListQueries(userID uuid.UUID, offset, limit int) ([]models.AnalysisRecord, error) {
	rows, err := c.db.Query(`
		SELECT id, user_id, subject_name, photo_path, notes,
		       detected_expression, confidence_score, created_at, updated_at
		FROM analysis_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis records: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		var record models.AnalysisRecord
		err := rows.Scan(
			&record.ID, &record.UserID, &record.SubjectName, &record.PhotoPath, &record.Notes,
			&record.DetectedExpression, &record.ConfidenceScore, &record.CreatedAt, &record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (c *Client) CountQueries(userID uuid.UUID) (int64, error) {
	var count int64
	err := c.db.QueryRow(`
		SELECT COUNT(*) FROM analysis_records WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analysis records: %w", err)
	}
	return count, nil
}

// UpdateQueryAnalysis attaches the inference outcome to a record. For failure
// sentinels confidence must be passed as invalid so the column stays NULL.
func (c *Client) UpdateQueryAnalysis(recordID uuid.UUID, expression string, confidence sql.NullFloat64) error {
	_, err := c.db.Exec(`
		UPDATE analysis_records
		SET detected_expression = $1, confidence_score = $2, updated_at = NOW()
		WHERE id = $3
	`, expression, confidence, recordID)
	if err != nil {
		return fmt.Errorf("failed to update analysis record: %w", err)
	}
	return nil
}

func (c *Client) DeleteQuery(recordID, userID uuid.UUID) error {
	_, err := c.db.Exec(`
		DELETE FROM analysis_records
		WHERE id = $1 AND user_id = $2
	`, recordID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis record: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
