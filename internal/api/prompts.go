package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/orchestrator"
	"github.com/spigell/recrutabot/internal/storage"
)

const defaultUpdatedBy = "system"

type promptResponse struct {
	Content   string `json:"content"`
	UpdatedAt string `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy"`
}

// getSystemPrompt never fails: a missing row or a store error yields the built-in prompt.
func (s *Server) getSystemPrompt(c *gin.Context) {
	prompt, err := s.deps.Store.ActivePrompt(c.Request.Context())
	if err != nil || prompt == nil || strings.TrimSpace(prompt.Content) == "" {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("falling back to default system prompt", zap.Error(err))
		}
		c.JSON(http.StatusOK, promptResponse{
			Content:   orchestrator.DefaultSystemPrompt(),
			UpdatedAt: s.now().UTC().Format(timeFormat),
			UpdatedBy: defaultUpdatedBy,
		})
		return
	}

	c.JSON(http.StatusOK, promptResponse{
		Content:   prompt.Content,
		UpdatedAt: prompt.CreatedAt.UTC().Format(timeFormat),
		UpdatedBy: prompt.UpdatedBy,
	})
}

type setPromptRequest struct {
	Content   string `json:"content"`
	UpdatedBy string `json:"updatedBy"`
}

func (s *Server) setSystemPrompt(c *gin.Context) {
	var req setPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, "Content é obrigatório", err)
		return
	}

	prompt, err := s.deps.Store.SetPrompt(c.Request.Context(), req.Content, req.UpdatedBy)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro ao atualizar system prompt", err)
		return
	}

	s.logger.Info("system prompt updated", zap.Uint("prompt_id", prompt.ID), zap.String("updated_by", prompt.UpdatedBy))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": promptResponse{
			Content:   prompt.Content,
			UpdatedAt: prompt.CreatedAt.UTC().Format(timeFormat),
			UpdatedBy: prompt.UpdatedBy,
		},
	})
}

type testBotRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"systemPrompt"`
}

// testBot runs a single generation against an unsaved prompt.
func (s *Server) testBot(c *gin.Context) {
	var req testBotRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" || req.SystemPrompt == "" {
		fail(c, http.StatusBadRequest, "Mensagem e system prompt são obrigatórios", err)
		return
	}

	if s.deps.Generator == nil {
		fail(c, http.StatusServiceUnavailable, "Gerador não configurado", nil)
		return
	}

	text, err := s.deps.Generator.GenerateContent(c.Request.Context(), req.SystemPrompt, req.Message)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao processar resposta", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": text})
}
