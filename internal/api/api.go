// Package api exposes the WhatsApp webhook and the recruiter admin API over gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/ai"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/scoring"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

const (
	webhookPath = "/api/whatsapp/webhook"
	timeFormat  = time.RFC3339
)

type Store interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, phone string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, phone string, update models.CandidateUpdate) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, phone string) error
	ListConversations(ctx context.Context) ([]models.Candidate, error)
	MarkAsRead(ctx context.Context, phone string) (int64, error)
	ListJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error)
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, id string, update models.JobUpdate) (*models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	ActivePrompt(ctx context.Context) (*models.SystemPrompt, error)
	SetPrompt(ctx context.Context, content, updatedBy string) (*models.SystemPrompt, error)
}

// Intake processes one normalized inbound message.
type Intake interface {
	HandleMessage(ctx context.Context, msg whatsapp.InboundMessage) error
}

type Messenger interface {
	Send(ctx context.Context, phone, body string, sender models.Sender) (*models.Message, error)
}

type Scorer interface {
	Score(ctx context.Context, candidateID, jobID string) (*scoring.Assessment, error)
}

// Deps wires the handlers to the rest of the application.
type Deps struct {
	Store     Store
	Intake    Intake
	Messenger Messenger
	Scorer    Scorer
	// Generator answers the prompt playground; it is not used for candidate turns.
	Generator ai.Generator

	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 verification when set.
	AppSecret string
}

type Server struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func New(deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{deps: deps, logger: logger, now: time.Now}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.health)

	router.GET(webhookPath, s.verifyWebhook)
	router.POST(webhookPath, s.receiveWebhook)

	api := router.Group("/api")
	api.POST("/whatsapp/send", s.sendMessage)
	api.GET("/whatsapp/config", s.whatsappConfig)

	api.GET("/candidates", s.listCandidates)
	api.POST("/candidates/score", s.scoreCandidate)
	api.GET("/candidates/:phone", s.getCandidate)
	api.PATCH("/candidates/:phone", s.updateCandidate)
	api.DELETE("/candidates/:phone", s.deleteCandidate)

	api.GET("/conversations", s.listConversations)
	api.POST("/conversations/:phone/mark-as-read", s.markAsRead)

	api.GET("/jobs", s.listJobs)
	api.POST("/jobs", s.createJob)
	api.PUT("/jobs/:id", s.updateJob)
	api.DELETE("/jobs/:id", s.deleteJob)

	api.GET("/system-prompt", s.getSystemPrompt)
	api.PUT("/system-prompt", s.setSystemPrompt)
	api.POST("/test-bot", s.testBot)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("http request", fields...)
			return
		}
		s.logger.Debug("http request", fields...)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail responds with a JSON error and keeps the cause for the request log.
func fail(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": message})
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
