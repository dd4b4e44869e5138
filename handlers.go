package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ScubaLog/logbook"
	"ScubaLog/models"
)

// persistWarning is returned alongside a successful response when the
// change could not be saved.
const persistWarning = "change applied but not saved to storage"

type server struct {
	logbook *logbook.Logbook
	logger  *slog.Logger
}

func newRouter(lb *logbook.Logbook, reg *prometheus.Registry, logger *slog.Logger) *gin.Engine {
	s := &server{logbook: lb, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.POST("/dives", s.addNewDive)
	router.GET("/dives", s.getAllDives)
	router.GET("/dives/report", s.generateDiveReport)
	router.GET("/dives/maxdepth", s.getMaxDepth)
	router.GET("/dives/:id", s.getDive)
	router.DELETE("/dives/:id", s.deleteDive)

	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(g *gin.Context) {
		start := time.Now()
		g.Next()
		logger.Debug("request",
			"method", g.Request.Method,
			"path", g.Request.URL.Path,
			"status", g.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *server) addNewDive(g *gin.Context) {
	var req models.NewDive

	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in location, site and date", "details": err.Error()})
		return
	}

	in, err := req.ToDive()
	if err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dive date"})
		return
	}

	dive, err := s.logbook.Add(g.Request.Context(), in)
	if err != nil {
		if errors.Is(err, logbook.ErrPersist) {
			g.JSON(http.StatusCreated, gin.H{"dive": dive, "warning": persistWarning})
			return
		}
		g.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log the new dive"})
		return
	}

	g.JSON(http.StatusCreated, gin.H{"dive": dive})
}

func (s *server) getAllDives(g *gin.Context) {
	g.JSON(http.StatusOK, s.logbook.OrderedView())
}

func (s *server) getDive(g *gin.Context) {
	dive, ok := s.logbook.Get(g.Param("id"))
	if !ok {
		g.JSON(http.StatusNotFound, gin.H{"error": "Dive not found"})
		return
	}
	g.JSON(http.StatusOK, dive)
}

func (s *server) deleteDive(g *gin.Context) {
	removed, err := s.logbook.Delete(g.Request.Context(), g.Param("id"))
	if !removed {
		g.JSON(http.StatusNotFound, gin.H{"error": "Dive not found"})
		return
	}
	if err != nil {
		g.JSON(http.StatusOK, gin.H{"warning": persistWarning})
		return
	}

	g.Status(http.StatusNoContent)
}

func (s *server) generateDiveReport(g *gin.Context) {
	g.JSON(http.StatusOK, s.logbook.Stats())
}

func (s *server) getMaxDepth(g *gin.Context) {
	g.JSON(http.StatusOK, gin.H{"maxDepth": s.logbook.Stats().MaxDepth})
}
