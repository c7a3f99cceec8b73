package record

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/guard"
	"github.com/medcore/hospital-api/internal/handler"
	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
)

type Handler struct {
	repo  repository.MedicalRecordRepository
	guard *guard.Guard
}

func NewHandler(repo repository.MedicalRecordRepository, g *guard.Guard) *Handler {
	return &Handler{repo: repo, guard: g}
}

func (h *Handler) lookup() guard.Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		rec, err := h.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return rec.Ref(), nil
	}
}

func (h *Handler) CreateRecord(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourceMedicalRecord}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	rec := &model.MedicalRecord{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		DoctorID:  identity.SubjectID,
		Diagnosis: req.Diagnosis,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.repo.Create(c.Request.Context(), rec); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(rec))
}

func (h *Handler) GetRecord(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid record ID"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceMedicalRecord}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	rec, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid record ID"))
		return
	}

	var req model.UpdateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbUpdate, Resource: model.ResourceMedicalRecord}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	rec, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if req.Diagnosis != nil {
		rec.Diagnosis = *req.Diagnosis
	}
	if req.Notes != nil {
		rec.Notes = *req.Notes
	}
	rec.UpdatedAt = time.Now()

	if err := h.repo.Update(c.Request.Context(), rec); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.guard.Invalidate(model.ResourceMedicalRecord, id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rec))
}

func (h *Handler) ListPatientRecords(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	// The collection is gated against a prospective ref carrying the owning
	// patient, so the owner predicate applies to list access too.
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceMedicalRecord}
	ref := &model.ResourceRef{Type: model.ResourceMedicalRecord, PatientID: patientID}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, ref); err != nil {
		handler.RespondError(c, err)
		return
	}

	records, err := h.repo.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/records")
	{
		records.POST("", h.CreateRecord)
		records.GET("/:id", h.GetRecord)
		records.PUT("/:id", h.UpdateRecord)
	}
	r.GET("/patients/:patientId/records", h.ListPatientRecords)
}
