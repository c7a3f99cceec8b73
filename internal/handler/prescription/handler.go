package prescription

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
	repo  repository.PrescriptionRepository
	guard *guard.Guard
}

func NewHandler(repo repository.PrescriptionRepository, g *guard.Guard) *Handler {
	return &Handler{repo: repo, guard: g}
}

func (h *Handler) lookup() guard.Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		p, err := h.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return p.Ref(), nil
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourcePrescription}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	p := &model.Prescription{
		ID:         uuid.New(),
		PatientID:  req.PatientID,
		DoctorID:   identity.SubjectID,
		Medication: req.Medication,
		Dosage:     req.Dosage,
		Directions: req.Directions,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) GetPrescription(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription ID"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePrescription}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	p, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPatientPrescriptions(c *gin.Context) {
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

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePrescription}
	ref := &model.ResourceRef{Type: model.ResourcePrescription, PatientID: patientID}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, ref); err != nil {
		handler.RespondError(c, err)
		return
	}

	prescriptions, err := h.repo.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescriptions))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.POST("", h.CreatePrescription)
		prescriptions.GET("/:id", h.GetPrescription)
	}
	r.GET("/patients/:patientId/prescriptions", h.ListPatientPrescriptions)
}
