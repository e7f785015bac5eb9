package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"license-classifier/internal/ai"
	"license-classifier/internal/classify"
	"license-classifier/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	AIConfig       ai.Config
	FallbackModel  string
	AllowedOrigins []string
	Workers        int

	// Classifier overrides the Groq client when set; tests inject scripted
	// doubles here.
	Classifier ai.Classifier
}

// Server wires HTTP handlers with the classification pipeline and the store.
type Server struct {
	db             *store.Database
	classifier     ai.Classifier
	notifier       *ClassificationNotifier
	allowedOrigins []string
	workers        int
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	classifier := cfg.Classifier
	if classifier == nil {
		client, err := ai.NewClient(cfg.AIConfig)
		if errors.Is(err, ai.ErrDisabled) {
			return nil, fmt.Errorf("ai classifier disabled: configure Groq credentials")
		}
		if err != nil {
			return nil, fmt.Errorf("ai client: %w", err)
		}
		classifier = client

		if fallbackModel := strings.TrimSpace(cfg.FallbackModel); fallbackModel != "" {
			fallbackCfg := cfg.AIConfig
			fallbackCfg.Model = fallbackModel
			fallback, err := ai.NewClient(fallbackCfg)
			if err != nil {
				return nil, fmt.Errorf("fallback ai client: %w", err)
			}
			classifier = ai.WithFallback(client, fallback)
			logrus.WithField("model", fallbackModel).Info("fallback model chained behind primary")
		}
	}

	return &Server{
		db:             db,
		classifier:     classifier,
		notifier:       NewClassificationNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		workers:        cfg.Workers,
	}, nil
}

// Close releases the underlying store.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.handleRoot)
	r.GET("/api/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.GET("/classify/stream", s.handleClassifyStream)
		v1.GET("/results", s.handleResults)
		v1.GET("/results/:name", s.handleGetResult)
		v1.PUT("/results/:name", s.handleUpdateResult)
		v1.DELETE("/results/:name", s.handleDeleteResult)
		v1.GET("/stats", s.handleStats)
	}

	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Software License Classification API",
		"endpoints": gin.H{
			"POST /api/v1/classify":        "Upload CSV file to classify licenses",
			"GET /api/v1/classify/stream":  "Websocket stream of classification progress",
			"GET /api/v1/results":          "View all classification results",
			"GET /api/v1/results/:name":    "View specific license classification",
			"PUT /api/v1/results/:name":    "Update a license classification",
			"DELETE /api/v1/results/:name": "Delete a classification",
			"GET /api/v1/stats":            "View classification statistics",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleClassify(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.renderError(c, http.StatusBadRequest, errors.New("csv file is required"))
		} else {
			s.renderError(c, http.StatusBadRequest, err)
		}
		return
	}
	if !isCSVFilename(fileHeader.Filename) {
		s.renderError(c, http.StatusBadRequest, errors.New("only csv files are accepted"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	defer src.Close()

	names, err := ParseLicenseCSV(src)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	requestID := uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"request":  requestID,
		"filename": fileHeader.Filename,
		"licenses": len(names),
	}).Info("classification request started")

	s.notifier.Broadcast(ClassificationEvent{
		Type:      "started",
		RequestID: requestID,
		Total:     len(names),
		Message:   "classification started",
	})

	var (
		processedMu sync.Mutex
		processed   int
	)
	orchestrator := classify.NewOrchestrator(s.classifier, s.workers)
	orchestrator.OnResult = func(_ int, outcome classify.Outcome) {
		processedMu.Lock()
		processed++
		done := processed
		processedMu.Unlock()

		dto := FromOutcome(outcome)
		s.notifier.Broadcast(ClassificationEvent{
			Type:      "result",
			RequestID: requestID,
			Total:     len(names),
			Processed: done,
			Result:    &dto,
		})
	}

	outcomes, err := orchestrator.ClassifyBatch(c.Request.Context(), names)
	if err != nil {
		if errors.Is(err, classify.ErrEmptyBatch) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		// Caller disconnected; completed outcomes are kept.
		logrus.WithError(err).WithField("request", requestID).Warn("classification interrupted")
		s.persistOutcomes(outcomes)
		s.notifier.Broadcast(ClassificationEvent{
			Type:      "cancelled",
			RequestID: requestID,
			Total:     len(names),
			Message:   "classification cancelled",
		})
		return
	}

	if err := s.persistOutcomes(outcomes); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	s.notifier.Broadcast(ClassificationEvent{
		Type:      "completed",
		RequestID: requestID,
		Total:     len(names),
		Processed: len(names),
		Message:   "classification completed",
	})

	dtos := make([]ClassificationDTO, 0, len(outcomes))
	for _, outcome := range outcomes {
		dtos = append(dtos, FromOutcome(outcome))
	}
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) persistOutcomes(outcomes []classify.Outcome) error {
	for _, outcome := range outcomes {
		if strings.TrimSpace(outcome.LicenseName) == "" {
			continue
		}
		row := store.Classification{
			LicenseName: outcome.LicenseName,
			Category:    outcome.Category,
			Explanation: outcome.Explanation,
			Degraded:    outcome.Degraded,
		}
		if err := s.db.SaveClassification(&row); err != nil {
			return fmt.Errorf("save classification %s: %w", outcome.LicenseName, err)
		}
	}
	return nil
}

func (s *Server) handleResults(c *gin.Context) {
	rows, err := s.db.ListClassifications()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if len(rows) == 0 {
		s.renderError(c, http.StatusNotFound, errors.New("no classifications found, upload a csv file first"))
		return
	}
	dtos := make([]ClassificationDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) handleGetResult(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	row, err := s.db.GetClassification(name)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("license %q not found", name))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleUpdateResult(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	category, ok := classify.ParseCategory(req.Category)
	if !ok {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("category must be one of: %s", classify.CategoryList()))
		return
	}
	explanation := classify.EnforceExplanation(strings.TrimSpace(req.Explanation))
	if explanation == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("explanation is required"))
		return
	}

	if _, err := s.db.GetClassification(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("license %q not found", name))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	row := store.Classification{
		LicenseName: name,
		Category:    category,
		Explanation: explanation,
	}
	if err := s.db.SaveClassification(&row); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, FromModel(row))
}

func (s *Server) handleDeleteResult(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	row, err := s.db.DeleteClassification(name)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("license %q not found", name))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, DeleteResponse{
		Message: fmt.Sprintf("classification for %q deleted", name),
		Deleted: FromModel(*row),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	total, err := s.db.CountClassifications()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	counts, err := s.db.CategoryCounts()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	names, err := s.db.LicenseNames()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, StatsResponse{
		TotalLicenses:        total,
		CategoryDistribution: counts,
		Licenses:             names,
	})
}

func (s *Server) handleClassifyStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("classification websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("classification websocket closed")
			} else {
				logrus.WithError(err).Warn("classification websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func isCSVFilename(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

var headerKeywords = []string{"name", "license", "software", "product", "title"}

// ParseLicenseCSV extracts license names from the first column. A header row
// is skipped when its first cell contains one of the usual column keywords.
func ParseLicenseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		names    []string
		rowIndex int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		value := strings.TrimSpace(strings.TrimPrefix(record[0], "\uFEFF"))
		if value == "" {
			continue
		}

		if rowIndex == 0 && isHeaderCell(value) {
			rowIndex++
			continue
		}
		rowIndex++
		names = append(names, value)
	}

	if len(names) == 0 {
		return nil, errors.New("no license names found in csv")
	}
	return names, nil
}

func isHeaderCell(value string) bool {
	lowered := strings.ToLower(value)
	for _, keyword := range headerKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
