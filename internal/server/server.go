package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/async"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/export"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Batches is the run queue the API submits archives to.
type Batches interface {
	Enqueue(ctx context.Context, job async.Job) (string, error)
	Get(runID string) (async.RunState, bool)
	List() []async.RunState
}

// Reports renders the applicants table.
type Reports interface {
	Report(ctx context.Context) (export.Report, error)
	ExportApplicantsXLSX(rows []entity.Applicant) ([]byte, error)
}

// Pinger reports whether the database is reachable.
type Pinger func(ctx context.Context) error

type Server struct {
	batches        Batches
	reports        Reports
	ping           Pinger
	logger         *zap.Logger
	maxUploadBytes int64
	now            func() time.Time
}

func NewServer(batches Batches, reports Reports, ping Pinger, maxUploadMB int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &Server{
		batches:        batches,
		reports:        reports,
		ping:           ping,
		logger:         logger,
		maxUploadBytes: maxUploadMB << 20,
		now:            time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(s.logger), accessLog(s.logger))
	r.MaxMultipartMemory = s.maxUploadBytes

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	v1.POST("/batches", s.submitBatch)
	v1.GET("/batches", s.listBatches)
	v1.GET("/batches/:id", s.getBatch)
	v1.GET("/applicants", s.listApplicants)
	v1.GET("/report.csv", s.reportCSV)
	v1.GET("/report.xlsx", s.reportXLSX)
	v1.GET("/instructions", s.instructions)
	return r
}

func (s *Server) health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) submitBatch(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, common.NewAppError("INVALID_INPUT", "multipart field \"file\" is required", common.ErrInvalidInput))
		return
	}
	if !strings.EqualFold(path.Ext(fh.Filename), ".zip") {
		s.fail(c, common.NewAppError("INVALID_INPUT", "file must be a .zip archive", common.ErrInvalidInput))
		return
	}
	if fh.Size > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": "TOO_LARGE", "error": fmt.Sprintf("archive exceeds %d bytes", s.maxUploadBytes)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, common.WrapError(err, "open upload"))
		return
	}
	defer func() { _ = f.Close() }()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, s.maxUploadBytes+1)); err != nil {
		s.fail(c, common.WrapError(err, "read upload"))
		return
	}

	runID, err := s.batches.Enqueue(c.Request.Context(), async.Job{
		Archive:     path.Base(fh.Filename),
		Data:        buf.Bytes(),
		Source:      "http",
		SubmittedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, async.ErrQueueFull) || errors.Is(err, async.ErrQueueClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"code": "QUEUE_UNAVAILABLE", "error": err.Error()})
			return
		}
		s.fail(c, err)
		return
	}

	c.Header("Location", "/api/v1/batches/"+runID)
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": constants.RunQueued})
}

func (s *Server) listBatches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.batches.List()})
}

func (s *Server) getBatch(c *gin.Context) {
	st, ok := s.batches.Get(c.Param("id"))
	if !ok {
		s.fail(c, common.NewAppError("NOT_FOUND", "run not found", common.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) listApplicants(c *gin.Context) {
	rep, err := s.reports.Report(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns":           rep.Columns,
		"rows":              rep.Rows,
		"null_counts":       rep.NullCounts,
		"columns_with_null": rep.ColumnsWithNulls(),
	})
}

func (s *Server) reportCSV(c *gin.Context) {
	rep, err := s.reports.Report(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rep.Rows); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.CSVFileName(s.now())))
	c.Data(http.StatusOK, contentTypeCSV, buf.Bytes())
}

func (s *Server) reportXLSX(c *gin.Context) {
	rep, err := s.reports.Report(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := s.reports.ExportApplicantsXLSX(rep.Rows)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.XLSXFileName(s.now())))
	c.Data(http.StatusOK, contentTypeXLSX, data)
}

func (s *Server) instructions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instructions":     llm.AnalystSystemPrompt,
		"categories":       constants.CategoryValues(),
		"special_remarks":  constants.RemarkValues(),
		"northeast_states": constants.NortheastStates,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := common.HTTPStatus(err)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status == http.StatusInternalServerError {
		common.LoggerFromContext(c.Request.Context(), s.logger).Error("http.handler.failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"code": common.ErrorCode(err, "INTERNAL"), "error": msg})
}
