package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/scan"
)

// MaxBulkScan bounds the serials accepted by one bulk scan request.
const MaxBulkScan = 1000

// Server holds the handlers' dependencies.
type Server struct {
	svc     *ledger.Service
	scanner *scan.BulkScanner
	logger  ledger.Logger
}

func NewServer(svc *ledger.Service, scanner *scan.BulkScanner, logger ledger.Logger) *Server {
	return &Server{svc: svc, scanner: scanner, logger: logger}
}

// NewRouter builds the gin engine with every route under /api/v1.
func NewRouter(s *Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), ErrorHandler(s.logger))

	v1 := router.Group("/api/v1")
	v1.GET("/health", s.Health)
	v1.GET("/plants", s.ListPlants)
	v1.POST("/compliance/check", s.CheckCompliance)
	v1.POST("/harvests", s.SubmitHarvest)
	v1.GET("/batches", s.ListBatches)
	v1.GET("/batches/:ref/labels", s.Labels)
	v1.POST("/batches/:ref/events", s.RecordEvent)
	v1.GET("/earnings", s.Earnings)
	v1.GET("/provenance/:serial", s.Provenance)
	v1.POST("/scans", s.Scan)
	v1.POST("/scans/bulk", s.BulkScan)
	v1.GET("/ledger/verify", s.VerifyChain)
	return router
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListPlants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plants": s.svc.Plants()})
}

type checkRequest struct {
	Plant     string  `json:"plant" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CheckCompliance previews the verdict without committing anything. A
// non-compliant verdict is a normal 200 response here.
func (s *Server) CheckCompliance(c *gin.Context) {
	var req checkRequest
	if !bind(c, &req) {
		return
	}
	verdict, err := s.svc.CheckCompliance(req.Plant, model.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) SubmitHarvest(c *gin.Context) {
	var req ledger.HarvestRequest
	if !bind(c, &req) {
		return
	}
	sub, err := s.svc.SubmitHarvest(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) ListBatches(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			_ = c.Error(fmt.Errorf("%w: limit must be a non-negative integer", ledger.ErrInvalidInput))
			return
		}
		limit = n
	}
	batches, err := s.svc.ListBatches(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (s *Server) Labels(c *gin.Context) {
	labels, err := s.svc.Labels(c.Request.Context(), c.Param("ref"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"serials": labels})
}

func (s *Server) RecordEvent(c *gin.Context) {
	var in ledger.EventInput
	if !bind(c, &in) {
		return
	}
	event, err := s.svc.RecordEvent(c.Request.Context(), c.Param("ref"), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (s *Server) Earnings(c *gin.Context) {
	earnings, err := s.svc.Earnings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

func (s *Server) Provenance(c *gin.Context) {
	history, err := s.svc.Resolve(c.Request.Context(), c.Param("serial"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, history)
}

type scanRequest struct {
	Serial string `json:"serial" binding:"required"`
}

func (s *Server) Scan(c *gin.Context) {
	var req scanRequest
	if !bind(c, &req) {
		return
	}
	outcome, err := s.svc.Scan(c.Request.Context(), req.Serial)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type bulkScanRequest struct {
	Serials []string `json:"serials" binding:"required"`
}

func (s *Server) BulkScan(c *gin.Context) {
	var req bulkScanRequest
	if !bind(c, &req) {
		return
	}
	if len(req.Serials) > MaxBulkScan {
		_ = c.Error(fmt.Errorf("%w: at most %d serials per request", ledger.ErrInvalidInput, MaxBulkScan))
		return
	}
	results, err := s.scanner.ScanAll(c.Request.Context(), req.Serials)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "tally": scan.Count(results)})
}

func (s *Server) VerifyChain(c *gin.Context) {
	report, err := s.svc.VerifyChain(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": report.OK(), "report": report})
}

// bind decodes the JSON body into v, recording an input error on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return false
	}
	return true
}
