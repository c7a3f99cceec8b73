// Package guard wraps every domain operation with a policy check plus
// ownership narrowing. Handlers resolve resources only through it.
package guard

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/policy"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/internal/service/audit"
	"github.com/medcore/hospital-api/pkg/errors"
	"github.com/medcore/hospital-api/pkg/metrics"
)

// Lookup resolves the owner-identifying fields of one concrete resource.
// It returns repository.ErrNotFound when the resource is absent.
type Lookup func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error)

const (
	refCacheTTL     = 30 * time.Second
	refCacheCleanup = 5 * time.Minute
)

// Guard is stateless apart from a short-TTL cache of owner refs; it is safe
// for concurrent use.
type Guard struct {
	engine  *policy.Engine
	sink    audit.Sink
	refs    *gocache.Cache
	metrics *metrics.Metrics
}

func NewGuard(engine *policy.Engine, sink audit.Sink, m *metrics.Metrics) *Guard {
	return &Guard{
		engine:  engine,
		sink:    sink,
		refs:    gocache.New(refCacheTTL, refCacheCleanup),
		metrics: m,
	}
}

// Authorize decides whether identity may perform action on the resource with
// the given id. The lookup runs only when a matching rule actually needs
// ownership evaluation; a caller with no rule at all gets Forbidden rather
// than NotFound, so probing cannot reveal which ids exist.
func (g *Guard) Authorize(ctx context.Context, identity model.Identity, action model.Action, resourceID uuid.UUID, lookup Lookup) (*model.ResourceRef, error) {
	defer func(start time.Time) {
		g.metrics.ObserveAuthzLatency(time.Since(start).Seconds())
	}(time.Now())

	if !g.engine.HasRule(identity.Role, action.Resource, action.Verb) {
		d := g.engine.Evaluate(identity, action, nil)
		g.record(ctx, identity, action, resourceID, model.DecisionDeny, d.Reason)
		return nil, errors.Forbidden(d.Reason)
	}

	if !g.engine.NeedsResource(identity.Role, action.Resource, action.Verb) {
		g.record(ctx, identity, action, resourceID, model.DecisionAllow, "")
		return nil, nil
	}

	ref, err := g.resolve(ctx, action.Resource, resourceID, lookup)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			g.record(ctx, identity, action, resourceID, model.DecisionDeny, "resource absent")
			return nil, errors.ResourceNotFound()
		}
		return nil, err
	}

	return g.evaluate(ctx, identity, action, ref)
}

// AuthorizeNew gates CREATE-style actions where the resource does not exist
// yet: the caller supplies the prospective owner refs instead of a lookup.
func (g *Guard) AuthorizeNew(ctx context.Context, identity model.Identity, action model.Action, ref *model.ResourceRef) error {
	defer func(start time.Time) {
		g.metrics.ObserveAuthzLatency(time.Since(start).Seconds())
	}(time.Now())

	d := g.engine.Evaluate(identity, action, ref)
	var id uuid.UUID
	if ref != nil {
		id = ref.ID
	}
	if !d.Allowed {
		g.record(ctx, identity, action, id, model.DecisionDeny, d.Reason)
		return errors.Forbidden(d.Reason)
	}
	g.record(ctx, identity, action, id, model.DecisionAllow, "")
	return nil
}

func (g *Guard) evaluate(ctx context.Context, identity model.Identity, action model.Action, ref *model.ResourceRef) (*model.ResourceRef, error) {
	d := g.engine.Evaluate(identity, action, ref)
	if !d.Allowed {
		g.record(ctx, identity, action, ref.ID, model.DecisionDeny, d.Reason)
		return nil, errors.Forbidden(d.Reason)
	}
	g.record(ctx, identity, action, ref.ID, model.DecisionAllow, "")
	return ref, nil
}

func (g *Guard) resolve(ctx context.Context, rt model.ResourceType, id uuid.UUID, lookup Lookup) (*model.ResourceRef, error) {
	key := string(rt) + ":" + id.String()
	if cached, ok := g.refs.Get(key); ok {
		return cached.(*model.ResourceRef), nil
	}

	ref, err := lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	g.refs.Set(key, ref, gocache.DefaultExpiration)
	return ref, nil
}

// Invalidate drops a cached owner ref after a write so the next check sees
// fresh ownership fields.
func (g *Guard) Invalidate(rt model.ResourceType, id uuid.UUID) {
	g.refs.Delete(string(rt) + ":" + id.String())
}

func (g *Guard) record(ctx context.Context, identity model.Identity, action model.Action, resourceID uuid.UUID, outcome model.DecisionOutcome, reason string) {
	g.metrics.IncAuthzDecision(string(outcome), string(action.Resource))
	g.sink.Record(ctx, model.DecisionRecord{
		SubjectID:    identity.SubjectID,
		Role:         identity.Role,
		Verb:         action.Verb,
		ResourceType: action.Resource,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Reason:       reason,
	})
}
