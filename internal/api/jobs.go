package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/models"
)

type jobRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Seniority      string   `json:"seniority"`
	Location       string   `json:"location"`
	RequiredSkills []string `json:"requiredSkills"`
}

func (r jobRequest) valid() bool {
	for _, v := range []string{r.Title, r.Description, r.Seniority, r.Location} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (s *Server) listJobs(c *gin.Context) {
	status := models.JobStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, "status inválido", nil)
		return
	}

	jobs, err := s.deps.Store.ListJobs(c.Request.Context(), status)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Erro ao buscar vagas", err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	c.JSON(http.StatusOK, jobs)
}

func (s *Server) createJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		fail(c, http.StatusBadRequest, "Campos obrigatórios faltando", err)
		return
	}

	skills := req.RequiredSkills
	if skills == nil {
		skills = []string{}
	}

	job := &models.Job{
		Title:          req.Title,
		Description:    req.Description,
		Seniority:      req.Seniority,
		Location:       req.Location,
		RequiredSkills: skills,
		Status:         models.JobOpen,
	}
	if err := s.deps.Store.CreateJob(c.Request.Context(), job); err != nil {
		fail(c, storeStatus(err), "Erro ao criar vaga", err)
		return
	}

	s.logger.Info("job created", zap.String("job_id", job.ID), zap.String("title", job.Title))
	c.JSON(http.StatusOK, job)
}

func (s *Server) updateJob(c *gin.Context) {
	var update models.JobUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	job, err := s.deps.Store.UpdateJob(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		fail(c, storeStatus(err), "Erro ao atualizar vaga", err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (s *Server) deleteJob(c *gin.Context) {
	if err := s.deps.Store.DeleteJob(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, storeStatus(err), "Erro ao deletar vaga", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
