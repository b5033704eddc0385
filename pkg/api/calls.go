package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ModuleRequest is one entry of the batched data call. ModuleName is a
// pointer because some endpoints (e.g. notification checks) are addressed
// with an explicit null module.
type ModuleRequest struct {
	ModuleName   *string     `json:"moduleName"`
	EndpointName string      `json:"endpointName"`
	Parameters   interface{} `json:"parameters,omitempty"`
}

// NewModuleRequest builds a request entry for a named module.
func NewModuleRequest(module, endpoint string, parameters interface{}) ModuleRequest {
	return ModuleRequest{
		ModuleName:   &module,
		EndpointName: endpoint,
		Parameters:   parameters,
	}
}

// CallsRequest is the envelope of the batched data endpoint. BundleVersion
// is an opaque client-compatibility token the portal requires on every call.
type CallsRequest struct {
	BundleVersion string          `json:"bundleVersion"`
	Requests      []ModuleRequest `json:"requests"`
}

// CallResult is one per-request result inside the calls envelope. Status 200
// means success; 401 signals token expiry at the envelope level.
type CallResult struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// CallsResponse is the calls endpoint envelope. Current API versions use
// "results"; "responses" is a legacy key that is detected by the client and
// surfaced as an error rather than silently coalesced.
type CallsResponse struct {
	Results   []CallResult `json:"results"`
	Responses []CallResult `json:"responses"`
}

// FlexInt decodes a JSON value that some API versions emit as a number and
// others as a quoted string.
type FlexInt int

// UnmarshalJSON accepts both 3 and "3".
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if string(data) == "null" || len(data) == 0 {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("not an integer: %q", data)
	}
	*n = FlexInt(v)
	return nil
}

// NameRef decodes a named entity that is serialized either as a bare string
// or as an object with name/abbreviation fields.
type NameRef struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// UnmarshalJSON accepts both "Math" and {"name":"Mathematics","abbreviation":"Math"}.
func (r *NameRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Name = s
		return nil
	}

	type alias NameRef
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("name reference is neither a string nor an object: %w", err)
	}
	*r = NameRef(obj)
	return nil
}

// Display returns the abbreviation when present, falling back to the name.
func (r NameRef) Display() string {
	if r.Abbreviation != "" {
		return r.Abbreviation
	}
	return r.Name
}
