package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

const signatureHeader = "X-Hub-Signature-256"

func (s *Server) verifyWebhook(c *gin.Context) {
	challenge, ok := whatsapp.VerifyChallenge(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
		s.deps.VerifyToken,
	)
	if !ok {
		s.logger.Warn("webhook verification failed", zap.String("mode", c.Query("hub.mode")))
		c.JSON(http.StatusForbidden, gin.H{"error": "Verificação falhou"})
		return
	}

	s.logger.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// receiveWebhook acknowledges every well-formed delivery with 200.
// Per-message failures are only logged.
func (s *Server) receiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read body", err)
		return
	}

	if s.deps.AppSecret != "" {
		if err := whatsapp.VerifySignature(s.deps.AppSecret, body, c.GetHeader(signatureHeader)); err != nil {
			s.logger.Warn("rejecting webhook", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	events, err := whatsapp.ParseWebhook(body, s.now())
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	for _, st := range events.Statuses {
		s.logger.Debug("message status",
			zap.String("message_id", st.MessageID),
			zap.String("status", st.Status),
			zap.String("phone", logger.MaskPhone(st.RecipientID)),
		)
	}

	if events.Empty() {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Evento não processado"})
		return
	}
	if len(events.Messages) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status recebido"})
		return
	}

	// The turn must finish even if the provider drops the connection.
	ctx := context.WithoutCancel(c.Request.Context())
	for _, msg := range events.Messages {
		if err := s.deps.Intake.HandleMessage(ctx, msg); err != nil {
			log := logger.WithFields(s.logger, logger.CandidateFields(msg.Phone, msg.ID)...)
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("inbound message timed out", zap.Error(err))
				continue
			}
			log.Error("handling inbound message", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" || req.Message == "" {
		fail(c, http.StatusBadRequest, "Parâmetros obrigatórios: to, message", err)
		return
	}

	msg, err := s.deps.Messenger.Send(c.Request.Context(), req.To, req.Message, models.SenderRecruiter)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Falha ao enviar mensagem", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mensagem enviada com sucesso", "data": msg})
}

func (s *Server) whatsappConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"verifyToken":      s.deps.VerifyToken,
		"webhookPath":      webhookPath,
		"signatureEnabled": s.deps.AppSecret != "",
	})
}
