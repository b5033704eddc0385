package api

import (
	"encoding/json"
	"fmt"
)

// SaltRequest represents the request for the per-tenant password salt.
// InstitutionID is nil for the unscoped (discovery) login.
type SaltRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	MobileApp       bool   `json:"mobileApp"`
	InstitutionID   *int   `json:"institutionId"`
}

// SaltResponse represents the salt endpoint response. The portal returns
// either a bare JSON string or an object with a "salt" field; both shapes
// are decoded here and nowhere else.
type SaltResponse struct {
	Salt string
}

// UnmarshalJSON decodes both known wire shapes of the salt response.
func (r *SaltResponse) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Salt = s
		return nil
	}

	var obj struct {
		Salt string `json:"salt"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("salt response is neither a string nor an object: %w", err)
	}
	r.Salt = obj.Salt
	return nil
}

// LoginRequest represents the login request. Hash is the PBKDF2 output
// (1024 hex characters) derived from the password and the tenant-scoped salt.
type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
	Hash            string `json:"hash"`
	MobileApp       bool   `json:"mobileApp"`
	InstitutionID   *int   `json:"institutionId"`
}

// AccountChoice is one institution candidate in an ambiguous login response.
type AccountChoice struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Student represents a student record in the login payload. The schedule
// endpoint expects this object to be echoed back as a request parameter.
type Student struct {
	ID        int    `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	ClassID   int    `json:"classId,omitempty"`
}

// ParentLink associates a parent account with one student.
type ParentLink struct {
	Student *Student `json:"student"`
}

// LoginUser is the user payload of a successful login.
type LoginUser struct {
	ID                int          `json:"id"`
	Email             string       `json:"email"`
	InstitutionID     *int         `json:"institutionId"`
	AssociatedParents []ParentLink `json:"associatedParents"`
	AssociatedStudent *Student     `json:"associatedStudent"`
}

// LoginResponse represents the login endpoint response. A successful login
// carries a JWT and the user payload; an ambiguous login carries
// MultipleAccounts instead and no token.
type LoginResponse struct {
	JWT   string `json:"jwt"`
	Token string `json:"token"` // older API versions use "token" instead of "jwt"

	User             *LoginUser      `json:"user"`
	MultipleAccounts []AccountChoice `json:"multipleAccounts"`
}

// AuthToken returns the session token regardless of which field the portal
// used, or an empty string when the response carries none.
func (r *LoginResponse) AuthToken() string {
	if r.JWT != "" {
		return r.JWT
	}
	return r.Token
}
