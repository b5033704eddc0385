package models

import "time"

// Credential holds the portal account credentials. Supplied once at
// construction and never logged.
type Credential struct {
	Identifier string // email or username
	Secret     string // account password
}

// TenantSalt is a password salt fetched for one institution scope. A nil
// TenantID means the unscoped (discovery) scope. Salts are not
// interchangeable across institution ids: a hash derived from a salt fetched
// for one institution is rejected by a login scoped to another.
type TenantSalt struct {
	TenantID *int   `json:"tenant_id"`
	Value    string `json:"value"`
}

// TenantCandidate is one institution discovered for an account.
type TenantCandidate struct {
	ID    int    `json:"id"`    // institution id
	Label string `json:"label"` // human-readable institution name
}

// Subject is the entity whose data is being polled (a student). Discovered
// from the login payload; immutable for the session's lifetime.
type Subject struct {
	ID          int    `json:"id"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	ClassID     int    `json:"class_id"`
	TenantID    int    `json:"tenant_id"`
	TenantLabel string `json:"tenant_label,omitempty"`
}

// DisplayName returns the subject's human-readable name.
func (s Subject) DisplayName() string {
	if s.Firstname == "" {
		return s.Lastname
	}
	if s.Lastname == "" {
		return s.Firstname
	}
	return s.Firstname + " " + s.Lastname
}

// Session is one authenticated portal session for one institution scope.
// Owned exclusively by a session manager and replaced wholesale on
// re-authentication.
type Session struct {
	TenantID  *int      `json:"tenant_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Subjects  []Subject `json:"subjects"`
}

// DiscoveryResult is the outcome of one unscoped login attempt: either the
// account belongs to a single institution or it spans several candidates.
// Representing the ambiguous case as a result variant keeps it out of the
// error path; it is normal control flow, not a failure.
type DiscoveryResult struct {
	Multi   bool              `json:"multi"`
	Tenants []TenantCandidate `json:"tenants"`
}
