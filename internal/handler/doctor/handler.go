package doctor

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
	repo  repository.DoctorRepository
	guard *guard.Guard
}

func NewHandler(repo repository.DoctorRepository, g *guard.Guard) *Handler {
	return &Handler{repo: repo, guard: g}
}

func (h *Handler) lookup() guard.Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		doctor, err := h.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return doctor.Ref(), nil
	}
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourceDoctor}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	doctor := &model.Doctor{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Name:      req.Name,
		Specialty: req.Specialty,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := h.repo.Create(c.Request.Context(), doctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(doctor))
}

func (h *Handler) GetDoctor(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceDoctor}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	doctor, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctor))
}

func (h *Handler) ListDoctors(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceDoctor}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	doctors, err := h.repo.List(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", h.CreateDoctor)
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id", h.GetDoctor)
	}
}
