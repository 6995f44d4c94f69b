package board

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/shared/server/middleware"
	"applicant-tracker/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler exposes the board over HTTP.
type Handler struct {
	Boards *Registry
}

// NewHandler constructs a Handler.
func NewHandler(boards *Registry) *Handler {
	return &Handler{Boards: boards}
}

// RegisterRoutes attaches pipeline and applicant routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pipeline/stages", h.stages)
	rg.GET("/dashboard", h.dashboard)
	rg.GET("/applicants", h.list)
	rg.POST("/applicants", h.create)
	rg.GET("/applicants/:id", h.get)
	rg.PUT("/applicants/:id", h.update)
	rg.PATCH("/applicants/:id/stage", h.changeStage)
	rg.DELETE("/applicants/:id", h.delete)
	rg.POST("/applicants/:id/attachments", h.attach)
}

// board resolves the caller's board, writing the error response itself on failure.
func (h *Handler) board(c *gin.Context) (*Board, bool) {
	ownerID := middleware.UserIDFromContext(c)
	if ownerID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
		return nil, false
	}
	b, err := h.Boards.For(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return b, true
}

func (h *Handler) stages(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"stages": b.StageCounts()})
}

func (h *Handler) dashboard(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	limit := 5
	if v := c.Query("notes"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	respond.OK(c, gin.H{
		"stages":       b.StageCounts(),
		"recent_notes": b.RecentNotes(limit),
	})
}

func (h *Handler) list(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		c.Set("boardOp", "fetch_all")
		if err := b.FetchAll(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
	}
	items, err := b.List(Filter{Stage: c.Query("stage"), Query: c.Query("q")})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"applicants": items})
}

func (h *Handler) get(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	c.Set("applicantId", c.Param("id"))
	a, err := b.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, a)
}

func (h *Handler) create(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	c.Set("boardOp", "create")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*maxUploadSize)

	in := CreateInput{
		Name:  c.PostForm("name"),
		Role:  c.PostForm("role"),
		Notes: c.PostForm("notes"),
		Email: c.PostForm("email"),
		Phone: c.PostForm("phone"),
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Role) == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "name and role are required", nil)
		return
	}

	var closers []multipart.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()
	for field, target := range map[string]**Upload{"attachment": &in.Attachment, "avatar": &in.Avatar} {
		fh, err := c.FormFile(field)
		if err != nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read "+field, nil)
			return
		}
		closers = append(closers, f)
		*target = &Upload{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}
	}

	created, err := b.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("applicantId", created.ID)
	respond.Created(c, created)
}

func (h *Handler) update(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	id := c.Param("id")
	c.Set("applicantId", id)
	c.Set("boardOp", "update")

	raw, err := c.GetRawData()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	// The body is the full aggregate: a missing collection would otherwise read as "delete all".
	var children struct {
		Notes       json.RawMessage `json:"notes"`
		Tasks       json.RawMessage `json:"tasks"`
		Attachments json.RawMessage `json:"attachments"`
	}
	var record applicants.Applicant
	if err := json.Unmarshal(raw, &children); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	if missing := missingCollections(children.Notes, children.Tasks, children.Attachments); len(missing) > 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation,
			"notes, tasks and attachments are required; send [] to clear them", gin.H{"missing": missing})
		return
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	if record.ID == "" {
		record.ID = id
	}
	if record.ID != id {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "id does not match path", nil)
		return
	}

	updated, err := b.Update(c.Request.Context(), record)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, updated)
}

func missingCollections(notes, tasks, attachments json.RawMessage) []string {
	var missing []string
	for _, f := range []struct {
		name string
		raw  json.RawMessage
	}{{"notes", notes}, {"tasks", tasks}, {"attachments", attachments}} {
		if len(f.raw) == 0 || string(f.raw) == "null" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type changeStageRequest struct {
	Stage string `json:"stage"`
}

func (h *Handler) changeStage(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	id := c.Param("id")
	c.Set("applicantId", id)
	c.Set("boardOp", "change_stage")

	var req changeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	stage := applicants.Stage(strings.TrimSpace(req.Stage))
	if parsed, err := applicants.ParseStage(req.Stage); err == nil {
		stage = parsed
	}
	if err := b.ChangeStage(c.Request.Context(), id, stage); err != nil {
		writeError(c, err)
		return
	}
	a, err := b.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, a)
}

func (h *Handler) delete(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	id := c.Param("id")
	c.Set("applicantId", id)
	c.Set("boardOp", "delete")

	if err := b.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) attach(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	id := c.Param("id")
	c.Set("applicantId", id)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer f.Close()

	att, err := b.AttachFile(c.Request.Context(), id, Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, att)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoOwner):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "applicant not found", nil)
	case errors.Is(err, ErrInvalidStage), errors.Is(err, applicants.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotLoaded):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeNotLoaded, "applicants are still loading, try again", nil)
	default:
		var opErr *OpError
		if errors.As(err, &opErr) {
			respond.Error(c, http.StatusBadGateway, respond.CodeRemote, "The change could not be saved. Please try again.", gin.H{"op": opErr.Op})
			return
		}
		respond.Error(c, http.StatusBadGateway, respond.CodeRemote, "The request could not be completed. Please try again.", nil)
	}
}
