// Package session owns one authenticated portal session per institution
// scope. The manager performs the salt-fetch → hash → login sequence, keeps
// the token fresh, and resolves exactly one authorization failure per data
// call by re-authenticating and retrying once.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/schulmanager/internal/client/api"
	"github.com/iudanet/schulmanager/internal/client/bundle"
	"github.com/iudanet/schulmanager/internal/crypto"
	"github.com/iudanet/schulmanager/internal/models"
	pkgapi "github.com/iudanet/schulmanager/pkg/api"
)

const (
	// tokenLifetime is the conservative session lifetime. The portal
	// advertises 60 minutes; treating it as 55 leaves headroom for clock
	// drift and in-flight requests.
	tokenLifetime = 55 * time.Minute

	// refreshBuffer triggers proactive re-authentication when less than
	// this much lifetime remains, instead of waiting for a 401.
	refreshBuffer = 5 * time.Minute
)

var (
	// ErrAmbiguousTenant indicates the manager's unscoped login found an
	// account spanning multiple institutions. Terminal for this manager:
	// the router must create one scoped manager per candidate.
	ErrAmbiguousTenant = errors.New("account spans multiple institutions")

	// ErrAuthenticationFailed indicates a second consecutive authorization
	// failure after the one transparent re-authentication retry. Surfaced
	// as terminal to avoid retry loops.
	ErrAuthenticationFailed = errors.New("authentication rejected after re-authentication retry")
)

// AuthResult is the outcome of one authentication attempt. Candidates is
// non-empty when the portal reported an ambiguous multi-institution account,
// which can only happen for the unscoped scope.
type AuthResult struct {
	Candidates []models.TenantCandidate
}

// Ambiguous reports whether the attempt ended in the ambiguous-tenant state.
func (r AuthResult) Ambiguous() bool {
	return len(r.Candidates) > 0
}

// Manager owns the session for exactly one institution scope. A nil
// tenantID is the unscoped scope used for discovery. All session state is
// mutex-guarded: concurrent calls on one manager serialize, so two callers
// cannot race to re-authenticate and clobber each other's token.
type Manager struct {
	client   api.ClientAPI
	bundle   bundle.Provider
	creds    models.Credential
	tenantID *int

	mu      sync.Mutex
	session *models.Session

	now func() time.Time
}

// NewManager creates a session manager for one institution scope.
// tenantID nil means the unscoped discovery scope.
func NewManager(client api.ClientAPI, bundleProvider bundle.Provider, creds models.Credential, tenantID *int) *Manager {
	return &Manager{
		client:   client,
		bundle:   bundleProvider,
		creds:    creds,
		tenantID: tenantID,
		now:      time.Now,
	}
}

// TenantID returns the scope this manager was created for (nil = unscoped).
func (m *Manager) TenantID() *int {
	return m.tenantID
}

// Authenticate performs the salt-fetch → hash → login sequence for this
// manager's scope. The salt is always fetched for this manager's tenant id;
// a salt obtained for any other scope is never reused here, which is the
// correctness-critical rule of the portal's auth scheme.
func (m *Manager) Authenticate(ctx context.Context) (AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticateLocked(ctx)
}

func (m *Manager) authenticateLocked(ctx context.Context) (AuthResult, error) {
	salt, err := m.client.GetSalt(ctx, m.creds.Identifier, m.tenantID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to get salt: %w", err)
	}

	hash := crypto.ComputeHash(m.creds.Secret, salt)

	resp, err := m.client.Login(ctx, pkgapi.LoginRequest{
		EmailOrUsername: m.creds.Identifier,
		Password:        m.creds.Secret,
		Hash:            hash,
		MobileApp:       false,
		InstitutionID:   m.tenantID,
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("login failed: %w", err)
	}

	if len(resp.MultipleAccounts) > 0 {
		if m.tenantID != nil {
			return AuthResult{}, fmt.Errorf("%w: unexpected for login scoped to institution %d",
				ErrAmbiguousTenant, *m.tenantID)
		}
		candidates := make([]models.TenantCandidate, 0, len(resp.MultipleAccounts))
		for _, acc := range resp.MultipleAccounts {
			candidates = append(candidates, models.TenantCandidate{ID: acc.ID, Label: acc.Label})
		}
		return AuthResult{Candidates: candidates}, nil
	}

	token := resp.AuthToken()
	if token == "" {
		return AuthResult{}, api.ErrInvalidCredentials
	}

	issued := m.now()
	m.session = &models.Session{
		TenantID:  m.tenantID,
		Token:     token,
		IssuedAt:  issued,
		ExpiresAt: tokenExpiry(token, issued),
		Subjects:  subjectsFromUser(resp.User, m.resolveTenantID(resp.User)),
	}

	return AuthResult{}, nil
}

// Call executes one authenticated batched data request. An expired token is
// resolved transparently: re-authenticate once, retry once. A second
// consecutive authorization failure surfaces as ErrAuthenticationFailed.
func (m *Manager) Call(ctx context.Context, requests []pkgapi.ModuleRequest) ([]pkgapi.CallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureAuthenticatedLocked(ctx); err != nil {
		return nil, err
	}

	bundleVersion, err := m.bundle.BundleVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bundle version: %w", err)
	}

	req := pkgapi.CallsRequest{BundleVersion: bundleVersion, Requests: requests}

	results, err := m.client.Calls(ctx, m.session.Token, req)
	if errors.Is(err, api.ErrUnauthorized) {
		if _, authErr := m.authenticateLocked(ctx); authErr != nil {
			return nil, fmt.Errorf("re-authentication failed: %w", authErr)
		}
		results, err = m.client.Calls(ctx, m.session.Token, req)
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, ErrAuthenticationFailed
		}
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Session returns a copy of the current session, or nil when the manager is
// unauthenticated.
func (m *Manager) Session() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	copied := *m.session
	copied.Subjects = append([]models.Subject(nil), m.session.Subjects...)
	return &copied
}

// Subjects returns the subjects discovered from this session's login
// payload.
func (m *Manager) Subjects() []models.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	return append([]models.Subject(nil), m.session.Subjects...)
}

// SetTenantLabel attaches a human-readable institution label to every
// subject of this session.
func (m *Manager) SetTenantLabel(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	for i := range m.session.Subjects {
		m.session.Subjects[i].TenantLabel = label
	}
}

// Logout discards the session state.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// ensureAuthenticatedLocked re-authenticates when no session exists or when
// the remaining lifetime is below the refresh buffer.
func (m *Manager) ensureAuthenticatedLocked(ctx context.Context) error {
	if m.session != nil && m.now().Before(m.session.ExpiresAt.Add(-refreshBuffer)) {
		return nil
	}
	result, err := m.authenticateLocked(ctx)
	if err != nil {
		return err
	}
	if result.Ambiguous() {
		return ErrAmbiguousTenant
	}
	return nil
}

// resolveTenantID determines the concrete institution id for subjects of
// this session: the manager's own scope when set, otherwise the id the
// login payload reports, otherwise zero (single-institution portals that
// omit the field).
func (m *Manager) resolveTenantID(user *pkgapi.LoginUser) int {
	if m.tenantID != nil {
		return *m.tenantID
	}
	if user != nil && user.InstitutionID != nil {
		return *user.InstitutionID
	}
	return 0
}

// subjectsFromUser extracts students from the login payload: one per
// associated parent link plus the directly associated student of a student
// account.
func subjectsFromUser(user *pkgapi.LoginUser, tenantID int) []models.Subject {
	if user == nil {
		return nil
	}

	var subjects []models.Subject
	for _, parent := range user.AssociatedParents {
		if parent.Student == nil {
			continue
		}
		subjects = append(subjects, subjectFromStudent(*parent.Student, tenantID))
	}
	if user.AssociatedStudent != nil {
		subjects = append(subjects, subjectFromStudent(*user.AssociatedStudent, tenantID))
	}
	return subjects
}

func subjectFromStudent(student pkgapi.Student, tenantID int) models.Subject {
	return models.Subject{
		ID:        student.ID,
		Firstname: student.Firstname,
		Lastname:  student.Lastname,
		ClassID:   student.ClassID,
		TenantID:  tenantID,
	}
}

// tokenExpiry derives the session expiry from the JWT's exp claim when one
// is present, capped at the conservative lifetime. The signature is not
// verified; the claim is only a hint for proactive refresh.
func tokenExpiry(token string, issued time.Time) time.Time {
	conservative := issued.Add(tokenLifetime)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return conservative
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return conservative
	}
	if exp.Time.Before(conservative) {
		return exp.Time
	}
	return conservative
}
