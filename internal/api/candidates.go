package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/filtering"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/scoring"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

func (s *Server) listCandidates(c *gin.Context) {
	var query filtering.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	steps, err := query.Steps()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	candidates, err := s.deps.Store.ListCandidates(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro ao buscar candidatos", err)
		return
	}

	filtered, err := filtering.Run(c.Request.Context(), s.logger, steps, candidates)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro ao filtrar candidatos", err)
		return
	}
	if filtered == nil {
		filtered = []models.Candidate{}
	}

	c.JSON(http.StatusOK, filtered)
}

func (s *Server) getCandidate(c *gin.Context) {
	candidate, err := s.deps.Store.GetCandidate(c.Request.Context(), whatsapp.NormalizePhone(c.Param("phone")))
	if err != nil {
		fail(c, storeStatus(err), "Candidato não encontrado", err)
		return
	}

	c.JSON(http.StatusOK, candidate)
}

func (s *Server) updateCandidate(c *gin.Context) {
	var update models.CandidateUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}
	if update.IsEmpty() {
		fail(c, http.StatusBadRequest, "nenhum campo para atualizar", nil)
		return
	}

	phone := whatsapp.NormalizePhone(c.Param("phone"))
	candidate, err := s.deps.Store.UpdateCandidate(c.Request.Context(), phone, update)
	if err != nil {
		fail(c, storeStatus(err), "Erro ao atualizar candidato", err)
		return
	}

	s.logger.Info("candidate updated", zap.Strings("fields", update.Fields()), zap.String("candidate_id", candidate.ID))
	c.JSON(http.StatusOK, candidate)
}

func (s *Server) deleteCandidate(c *gin.Context) {
	if err := s.deps.Store.DeleteCandidate(c.Request.Context(), whatsapp.NormalizePhone(c.Param("phone"))); err != nil {
		status := storeStatus(err)
		message := "Erro ao deletar candidato"
		if status == http.StatusNotFound {
			message = "Falha ao deletar candidato ou candidato não encontrado"
		}
		fail(c, status, message, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type scoreRequest struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
}

func (s *Server) scoreCandidate(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "candidateId e jobId são obrigatórios", err)
		return
	}

	assessment, err := s.deps.Scorer.Score(c.Request.Context(), req.CandidateID, req.JobID)
	switch {
	case err == nil:
	case errors.Is(err, scoring.ErrMissingIDs):
		fail(c, http.StatusBadRequest, "candidateId e jobId são obrigatórios", err)
		return
	case errors.Is(err, scoring.ErrJobNotFound):
		fail(c, http.StatusNotFound, "Vaga não encontrada", err)
		return
	case errors.Is(err, scoring.ErrCandidateNotFound):
		fail(c, http.StatusNotFound, "Candidato não encontrado", err)
		return
	case errors.Is(err, scoring.ErrEmptyConversation):
		fail(c, http.StatusNotFound, "Conversa não encontrada ou vazia", err)
		return
	case errors.Is(err, scoring.ErrInvalidScore):
		fail(c, http.StatusInternalServerError, "Falha ao processar a resposta da IA", err)
		return
	default:
		fail(c, http.StatusInternalServerError, "Erro ao avaliar candidato", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"score":         assessment.Score,
		"justification": assessment.Justification,
	})
}

func (s *Server) listConversations(c *gin.Context) {
	conversations, err := s.deps.Store.ListConversations(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro ao buscar conversas", err)
		return
	}
	if conversations == nil {
		conversations = []models.Candidate{}
	}

	c.JSON(http.StatusOK, conversations)
}

func (s *Server) markAsRead(c *gin.Context) {
	updated, err := s.deps.Store.MarkAsRead(c.Request.Context(), whatsapp.NormalizePhone(c.Param("phone")))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro interno do servidor ao marcar mensagens como lidas", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Mensagens marcadas como lidas.", "updated": updated})
}
