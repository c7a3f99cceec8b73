package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/guard"
	"github.com/medcore/hospital-api/internal/handler"
	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/service/audit"
)

const defaultQueryLimit = 100

type Handler struct {
	service *audit.Service
	guard   *guard.Guard
}

func NewHandler(service *audit.Service, g *guard.Guard) *Handler {
	return &Handler{service: service, guard: g}
}

// QueryDecisions returns decision log entries. The log is an account-level
// surface, so it is gated as a user read, which only administrators hold.
func (h *Handler) QueryDecisions(c *gin.Context) {
	identity, ok := handler.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceUser}
	if err := h.guard.AuthorizeNew(c.Request.Context(), identity, action, nil); err != nil {
		handler.RespondError(c, err)
		return
	}

	filters := &model.DecisionFilters{Limit: defaultQueryLimit}

	if id := c.Query("subject_id"); id != "" {
		subjectID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subject ID"))
			return
		}
		filters.SubjectID = subjectID
	}
	if rt := c.Query("resource_type"); rt != "" {
		filters.ResourceType = model.ResourceType(rt)
	}
	if outcome := c.Query("outcome"); outcome != "" {
		filters.Outcome = model.DecisionOutcome(outcome)
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid since timestamp"))
			return
		}
		filters.Since = t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid until timestamp"))
			return
		}
		filters.Until = t
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid offset"))
			return
		}
		filters.Offset = n
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		filters.Limit = n
	}

	records, err := h.service.Query(c.Request.Context(), filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit/decisions", h.QueryDecisions)
}
