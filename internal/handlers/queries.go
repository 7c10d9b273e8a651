package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"facequery-backend/internal/database"
	"facequery-backend/internal/inference"
	"facequery-backend/internal/middleware"
	"facequery-backend/internal/models"
)

// PageSize is the fixed number of records per list page.
const PageSize = 10

// QueryStore is the slice of the database client the queries handler needs.
type QueryStore interface {
	CreateQuery(record *models.AnalysisRecord) error
	GetQuery(recordID, userID uuid.UUID) (*models.AnalysisRecord, error)
	ListQueries(userID uuid.UUID, offset, limit int) ([]models.AnalysisRecord, error)
	CountQueries(userID uuid.UUID) (int64, error)
	UpdateQueryAnalysis(recordID uuid.UUID, expression string, confidence sql.NullFloat64) error
	DeleteQuery(recordID, userID uuid.UUID) error
}

// PhotoStore stores uploaded photos under the media root.
type PhotoStore interface {
	Save(userID uuid.UUID, file *multipart.FileHeader) (string, error)
	Path(relPath string) (string, error)
	Remove(relPath string) error
}

// Analyzer is the inference adapter boundary. A nil result means analysis
// failed; the cause is only logged inside the adapter.
type Analyzer interface {
	Analyze(imagePath string) *inference.Result
}

type QueriesHandler struct {
	store    QueryStore
	photos   PhotoStore
	analyzer Analyzer
	log      *zap.SugaredLogger
}

func NewQueriesHandler(store QueryStore, photos PhotoStore, analyzer Analyzer, log *zap.SugaredLogger) *QueriesHandler {
	return &QueriesHandler{
		store:    store,
		photos:   photos,
		analyzer: analyzer,
		log:      log,
	}
}

// currentUserID extracts the authenticated user's id set by the auth
// middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

// Create godoc
// @Summary     Create an analysis query
// @Description Stores the uploaded photo, creates a record, runs facial expression
// @Description analysis on it synchronously and returns the record with the result
// @Description (or a failure status). The Location header points at the detail route
// @Description regardless of the analysis outcome.
// @Tags        queries
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       subject_name formData string true "Subject name (max 100 characters)"
// @Param       notes formData string false "Optional notes"
// @Param       photo formData file true "Face photo"
// @Success     201 {object} models.QueryResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /query/new [post]
func (h *QueriesHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	subjectName := strings.TrimSpace(c.PostForm("subject_name"))
	if subjectName == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "subject_name is required"})
		return
	}
	if len(subjectName) > 100 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "subject_name must be at most 100 characters"})
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "photo is required"})
		return
	}

	relPath, err := h.photos.Save(userID, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to store photo",
			Message: err.Error(),
		})
		return
	}

	record := &models.AnalysisRecord{
		ID:          uuid.New(),
		UserID:      userID,
		SubjectName: subjectName,
		PhotoPath:   relPath,
	}
	if notes := c.PostForm("notes"); notes != "" {
		record.Notes = sql.NullString{String: notes, Valid: true}
	}

	if err := h.store.CreateQuery(record); err != nil {
		// No record, so the stored photo has no owner row either.
		if removeErr := h.photos.Remove(relPath); removeErr != nil {
			h.log.Warnw("failed to remove photo after create failure",
				"path", relPath, "error", removeErr)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create query",
			Message: err.Error(),
		})
		return
	}

	expression, confidence, notice := h.analyzeRecord(record)

	record.DetectedExpression = sql.NullString{String: expression, Valid: true}
	record.ConfidenceScore = confidence
	if err := h.store.UpdateQueryAnalysis(record.ID, expression, confidence); err != nil {
		// The record exists and the detail view will show the missing
		// status; surface a notice rather than failing the create.
		h.log.Errorw("failed to persist analysis result", "record_id", record.ID, "error", err)
		if notice == "" {
			notice = "Analysis completed but the result could not be saved."
		}
	}

	response := models.NewQueryResponse(record)
	response.Notice = notice

	c.Header("Location", "/query/"+record.ID.String())
	c.JSON(http.StatusCreated, response)
}

// analyzeRecord runs the inference adapter for a freshly created record and
// maps the outcome onto the persisted status fields plus a user-visible
// notice ("" when analysis succeeded).
func (h *QueriesHandler) analyzeRecord(record *models.AnalysisRecord) (string, sql.NullFloat64, string) {
	if record.PhotoPath == "" {
		return models.StatusNoPhoto, sql.NullFloat64{}, "No photo uploaded for analysis."
	}

	imagePath, err := h.photos.Path(record.PhotoPath)
	if err != nil {
		h.log.Errorw("failed to resolve photo path", "record_id", record.ID, "error", err)
		return models.StatusError, sql.NullFloat64{}, "An error occurred during analysis setup."
	}

	result := h.analyzer.Analyze(imagePath)
	if result == nil {
		return models.StatusAnalysisFailed, sql.NullFloat64{},
			"Facial expression analysis failed. Please try a different image."
	}

	return result.Label, sql.NullFloat64{Float64: result.Confidence, Valid: true}, ""
}

// List godoc
// @Summary     List analysis queries
// @Description Returns the current user's queries, newest first, 10 per page.
// @Description An invalid page number falls back to the first page; a page past
// @Description the end returns the last page.
// @Tags        queries
// @Produce     json
// @Security    Bearer
// @Param       page query string false "Page number"
// @Success     200 {object} models.QueryListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /queries [get]
func (h *QueriesHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	total, err := h.store.CountQueries(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list queries",
			Message: err.Error(),
		})
		return
	}

	page, totalPages := clampPage(c.Query("page"), total)

	records, err := h.store.ListQueries(userID, (page-1)*PageSize, PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list queries",
			Message: err.Error(),
		})
		return
	}

	summaries := make([]models.QuerySummary, len(records))
	for i := range records {
		summaries[i] = models.NewQuerySummary(&records[i])
	}

	c.JSON(http.StatusOK, models.QueryListResponse{
		Data:       summaries,
		Page:       page,
		PageSize:   PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// clampPage parses the page parameter and clamps it into [1, totalPages].
// Non-numeric input yields page 1.
func clampPage(raw string, totalItems int64) (page, totalPages int) {
	totalPages = int((totalItems + PageSize - 1) / PageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

// Detail godoc
// @Summary     Query detail
// @Description Returns one of the current user's queries. A query that does not
// @Description exist and a query owned by someone else are both reported as not
// @Description found.
// @Tags        queries
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Query ID (UUID)"
// @Success     200 {object} models.QueryResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /query/{id} [get]
func (h *QueriesHandler) Detail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	record, ok := h.resolveOwned(c, userID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.NewQueryResponse(record))
}

// DeleteConfirm godoc
// @Summary     Deletion confirmation step
// @Description Returns the query summary and how to confirm its deletion.
// @Description No mutation happens here.
// @Tags        queries
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Query ID (UUID)"
// @Success     200 {object} models.DeleteConfirmResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /query/{id}/delete [get]
func (h *QueriesHandler) DeleteConfirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	record, ok := h.resolveOwned(c, userID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.DeleteConfirmResponse{
		Query:         models.NewQuerySummary(record),
		ConfirmMethod: http.MethodPost,
		ConfirmPath:   "/query/" + record.ID.String() + "/delete",
	})
}

// Delete godoc
// @Summary     Delete a query
// @Description Deletes the database record, then best-effort deletes the backing
// @Description photo. A file that cannot be removed produces a warning, not a
// @Description failure; the record stays deleted.
// @Tags        queries
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Query ID (UUID)"
// @Success     200 {object} models.DeleteResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /query/{id}/delete [post]
func (h *QueriesHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	record, ok := h.resolveOwned(c, userID)
	if !ok {
		return
	}

	// Capture the path before the row goes away.
	photoPath := record.PhotoPath

	if err := h.store.DeleteQuery(record.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database error deleting query",
			Message: err.Error(),
		})
		return
	}

	// Row is gone; file removal is best-effort and never reverts it.
	warning := ""
	if photoPath != "" {
		if err := h.photos.Remove(photoPath); err != nil {
			h.log.Warnw("failed to remove photo", "path", photoPath, "error", err)
			warning = fmt.Sprintf("query %q deleted, but the associated image file could not be removed", record.SubjectName)
		}
	}

	c.Header("Location", "/queries")
	c.JSON(http.StatusOK, models.DeleteResponse{
		Message: fmt.Sprintf("query %q deleted", record.SubjectName),
		Warning: warning,
	})
}

// resolveOwned fetches the record in the id path parameter scoped to the
// current user. Missing, foreign-owned and malformed ids all produce the same
// not-found response so record existence is not leaked.
func (h *QueriesHandler) resolveOwned(c *gin.Context, userID uuid.UUID) (*models.AnalysisRecord, bool) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "query not found"})
		return nil, false
	}

	record, err := h.store.GetQuery(recordID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "query not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get query",
			Message: err.Error(),
		})
		return nil, false
	}

	return record, true
}
