// Package router discovers which institutions an account spans and routes
// every data request to the session of the correct one. N institutions is
// the default path; a single institution is just the degenerate case of it.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/schulmanager/internal/client/api"
	"github.com/iudanet/schulmanager/internal/client/bundle"
	"github.com/iudanet/schulmanager/internal/client/session"
	"github.com/iudanet/schulmanager/internal/models"
)

// RoutingError indicates no session is registered for a subject's
// institution. Should not occur when discovery was exhaustive.
type RoutingError struct {
	TenantID int
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no session registered for institution %d", e.TenantID)
}

// Router owns one session manager per discovered institution.
type Router struct {
	client api.ClientAPI
	bundle bundle.Provider
	creds  models.Credential

	mu       sync.RWMutex
	sessions map[int]*session.Manager
	labels   map[int]string
}

// New creates a router for one account. Call Discover (or Restore, when the
// tenant set is already persisted) before routing requests.
func New(client api.ClientAPI, bundleProvider bundle.Provider, creds models.Credential) *Router {
	return &Router{
		client:   client,
		bundle:   bundleProvider,
		creds:    creds,
		sessions: make(map[int]*session.Manager),
		labels:   make(map[int]string),
	}
}

// Discover performs one unscoped login. A single-institution account keeps
// the already-authenticated unscoped manager; a multi-institution account
// gets one scoped manager per candidate, each authenticated independently
// and concurrently since their sessions share nothing.
func (r *Router) Discover(ctx context.Context) (models.DiscoveryResult, error) {
	unscoped := session.NewManager(r.client, r.bundle, r.creds, nil)

	result, err := unscoped.Authenticate(ctx)
	if err != nil {
		return models.DiscoveryResult{}, fmt.Errorf("discovery login failed: %w", err)
	}

	if !result.Ambiguous() {
		sess := unscoped.Session()
		if sess == nil {
			return models.DiscoveryResult{}, api.ErrInvalidCredentials
		}
		tenantID := 0
		if len(sess.Subjects) > 0 {
			tenantID = sess.Subjects[0].TenantID
		}

		r.mu.Lock()
		r.sessions = map[int]*session.Manager{tenantID: unscoped}
		r.labels = map[int]string{tenantID: ""}
		r.mu.Unlock()

		return models.DiscoveryResult{
			Tenants: []models.TenantCandidate{{ID: tenantID}},
		}, nil
	}

	if err := r.authenticateTenants(ctx, result.Candidates); err != nil {
		return models.DiscoveryResult{}, err
	}

	return models.DiscoveryResult{Multi: true, Tenants: result.Candidates}, nil
}

// Restore registers a previously discovered tenant set without an unscoped
// login, authenticating one scoped manager per tenant. Used on restart when
// the host persisted the discovery result.
func (r *Router) Restore(ctx context.Context, tenants []models.TenantCandidate) error {
	if len(tenants) == 0 {
		return fmt.Errorf("no tenants to restore")
	}
	return r.authenticateTenants(ctx, tenants)
}

// authenticateTenants builds and authenticates one scoped manager per
// candidate. Each manager fetches the salt for its own institution id.
func (r *Router) authenticateTenants(ctx context.Context, tenants []models.TenantCandidate) error {
	managers := make(map[int]*session.Manager, len(tenants))
	var managersMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, tenant := range tenants {
		tenant := tenant
		g.Go(func() error {
			tenantID := tenant.ID
			mgr := session.NewManager(r.client, r.bundle, r.creds, &tenantID)

			result, err := mgr.Authenticate(gctx)
			if err != nil {
				return fmt.Errorf("authentication for institution %d (%s) failed: %w",
					tenant.ID, tenant.Label, err)
			}
			if result.Ambiguous() {
				return fmt.Errorf("institution %d reported ambiguous accounts", tenant.ID)
			}
			mgr.SetTenantLabel(tenant.Label)

			managersMu.Lock()
			managers[tenant.ID] = mgr
			managersMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	labels := make(map[int]string, len(tenants))
	for _, tenant := range tenants {
		labels[tenant.ID] = tenant.Label
	}

	r.mu.Lock()
	r.sessions = managers
	r.labels = labels
	r.mu.Unlock()
	return nil
}

// SessionFor returns the session manager owning the subject's institution.
func (r *Router) SessionFor(subject models.Subject) (*session.Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mgr, ok := r.sessions[subject.TenantID]
	if !ok {
		return nil, &RoutingError{TenantID: subject.TenantID}
	}
	return mgr, nil
}

// AllSubjects returns the union of subjects across every managed session,
// each tagged with its institution id and label, ordered by institution
// then subject id.
func (r *Router) AllSubjects() []models.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subjects []models.Subject
	for tenantID, mgr := range r.sessions {
		label := r.labels[tenantID]
		for _, subject := range mgr.Subjects() {
			if subject.TenantLabel == "" {
				subject.TenantLabel = label
			}
			subjects = append(subjects, subject)
		}
	}

	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].TenantID != subjects[j].TenantID {
			return subjects[i].TenantID < subjects[j].TenantID
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects
}

// Tenants returns the registered tenant set, ordered by id. Suitable for
// persisting so discovery can be skipped on restart.
func (r *Router) Tenants() []models.TenantCandidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenants := make([]models.TenantCandidate, 0, len(r.sessions))
	for tenantID := range r.sessions {
		tenants = append(tenants, models.TenantCandidate{ID: tenantID, Label: r.labels[tenantID]})
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return tenants
}

// Close discards every managed session.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mgr := range r.sessions {
		mgr.Logout()
	}
	r.sessions = make(map[int]*session.Manager)
	r.labels = make(map[int]string)
}
