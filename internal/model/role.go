package model

import (
	"encoding/json"
	"time"
)

// Role groups a set of catalog permissions under a name. A wildcard role
// bypasses the permission-set check entirely; module overrides can still
// deny it per resource. System roles cannot be deleted.
type Role struct {
	ID                  int64               `json:"id" db:"id"`
	Name                string              `json:"name" db:"name"`
	Description         string              `json:"description" db:"description"`
	IsSystemRole        bool                `json:"is_system_role" db:"is_system_role"`
	Wildcard            bool                `json:"wildcard" db:"wildcard"`
	Flags               RoleFlags           `json:"flags"`
	ConstraintsTemplate ConstraintsTemplate `json:"constraints_template"`
	Permissions         []Permission        `json:"permissions"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
}

// RoleFlags is the typed form of a role's flag blob. ExecutiveHidePII is the
// only interpreted field today; unrecognized keys are preserved in Extra so
// round-tripping a role through export/import never drops them.
type RoleFlags struct {
	Version          int
	ExecutiveHidePII bool
	Extra            map[string]json.RawMessage
}

// MarshalJSON flattens the recognized fields and the preserved extras into a
// single object.
func (f RoleFlags) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(f.Extra)+2)
	for k, v := range f.Extra {
		out[k] = v
	}
	if f.Version != 0 {
		v, _ := json.Marshal(f.Version)
		out["version"] = v
	}
	if f.ExecutiveHidePII {
		out["executive_hide_pii"] = json.RawMessage("true")
	}
	return json.Marshal(out)
}

// UnmarshalJSON lifts the recognized keys out of the object and keeps the
// rest verbatim in Extra.
func (f *RoleFlags) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = RoleFlags{}
	for k, v := range raw {
		switch k {
		case "version":
			if err := json.Unmarshal(v, &f.Version); err != nil {
				return err
			}
		case "executive_hide_pii":
			if err := json.Unmarshal(v, &f.ExecutiveHidePII); err != nil {
				return err
			}
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]json.RawMessage)
			}
			f.Extra[k] = v
		}
	}
	return nil
}

// ConstraintsTemplate is an advisory, versioned blob attached to a role.
// The guard does not interpret it; it is stored and exported verbatim.
type ConstraintsTemplate struct {
	Version int             `json:"version,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// IsZero reports whether the template carries no content.
func (c ConstraintsTemplate) IsZero() bool {
	return c.Version == 0 && len(c.Raw) == 0
}
