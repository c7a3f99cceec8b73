package patient

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
	repo  repository.PatientRepository
	guard *guard.Guard
}

func NewHandler(repo repository.PatientRepository, g *guard.Guard) *Handler {
	return &Handler{repo: repo, guard: g}
}

func (h *Handler) lookup() guard.Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		patient, err := h.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return patient.Ref(), nil
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourcePatient}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	patient := &model.Patient{
		ID:          uuid.New(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := h.repo.Create(c.Request.Context(), patient); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(patient))
}

func (h *Handler) GetPatient(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePatient}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	patient, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbUpdate, Resource: model.ResourcePatient}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	patient, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	patient.Name = req.Name
	patient.Email = req.Email
	patient.Phone = req.Phone
	patient.DateOfBirth = req.DateOfBirth
	patient.UpdatedAt = time.Now()

	if err := h.repo.Update(c.Request.Context(), patient); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.guard.Invalidate(model.ResourcePatient, id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

func (h *Handler) ListPatients(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	// Listing is allowed only for roles whose patient-read rule is
	// unconditional; owner-scoped patients get Forbidden here.
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePatient}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	filters := &model.PatientFilters{
		Name:  c.Query("name"),
		Email: c.Query("email"),
	}
	patients, err := h.repo.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
	}
}
