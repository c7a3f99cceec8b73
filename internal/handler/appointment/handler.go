package appointment

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
	"github.com/medcore/hospital-api/internal/scheduler"
)

const defaultSlotLength = 30 * time.Minute

type Handler struct {
	service *scheduler.Service
	guard   *guard.Guard
	repo    repository.AppointmentRepository
}

func NewHandler(service *scheduler.Service, g *guard.Guard, repo repository.AppointmentRepository) *Handler {
	return &Handler{service: service, guard: g, repo: repo}
}

// lookup resolves an appointment's owner refs for the guard.
func (h *Handler) lookup() guard.Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		apt, err := h.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return apt.Ref(), nil
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	// The appointment does not exist yet, so the guard evaluates against the
	// prospective owner refs from the request.
	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourceAppointment}
	ref := &model.ResourceRef{
		Type:      model.ResourceAppointment,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
	}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, ref); err != nil {
		handler.RespondError(c, err)
		return
	}

	apt, err := h.service.Book(c.Request.Context(), req.DoctorID, req.PatientID, model.Interval{
		Start: req.StartTime,
		End:   req.EndTime,
	}, req.Notes)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	filters := &model.AppointmentFilters{}

	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
			return
		}
		filters.DoctorID = doctorID
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			return
		}
		filters.PatientID = patientID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}

	// Owner-scoped roles see only their own slice of the book regardless of
	// the requested filters; the guard then evaluates against that pinned
	// scope so list access is decided and recorded like any other read.
	ref := &model.ResourceRef{Type: model.ResourceAppointment}
	switch identity.Role {
	case model.RolePatient:
		filters.PatientID = identity.SubjectID
		ref.PatientID = identity.SubjectID
	case model.RoleDoctor:
		filters.DoctorID = identity.SubjectID
		ref.DoctorID = identity.SubjectID
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, ref); err != nil {
		handler.RespondError(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbUpdate, Resource: model.ResourceAppointment}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), id, model.Interval{
		Start: req.StartTime,
		End:   req.EndTime,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.guard.Invalidate(model.ResourceAppointment, id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	action := model.Action{Verb: model.VerbUpdate, Resource: model.ResourceAppointment}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.guard.Invalidate(model.ResourceAppointment, id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	action := model.Action{Verb: model.VerbUpdate, Resource: model.ResourceAppointment}
	if _, err := h.guard.Authorize(c.Request.Context(), identity, action, id, h.lookup()); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.Complete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.guard.Invalidate(model.ResourceAppointment, id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	doctorID, err := uuid.Parse(c.Query("doctor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date format"))
		return
	}

	// Availability reveals nothing beyond the doctor roster, so it is gated
	// as a doctor read.
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceDoctor}
	ref := &model.ResourceRef{Type: model.ResourceDoctor, ID: doctorID, DoctorID: doctorID}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, ref); err != nil {
		handler.RespondError(c, err)
		return
	}

	slots, err := h.service.Availability(c.Request.Context(), doctorID, date, defaultSlotLength)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/availability", h.GetAvailability)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id/reschedule", h.RescheduleAppointment)
		appointments.PUT("/:id/cancel", h.CancelAppointment)
		appointments.PUT("/:id/complete", h.CompleteAppointment)
	}
}
