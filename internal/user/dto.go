package user

import "time"

type RoleResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentId,omitempty"`
	Level    int    `json:"level"`
}

// ProfileResponse is the caller's profile. Permissions are the flat keys of
// the principal's snapshot.
type ProfileResponse struct {
	ID            int64          `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	Department    string         `json:"department,omitempty"`
	IsSystemAdmin bool           `json:"isSystemAdmin"`
	Roles         []RoleResponse `json:"roles"`
	Permissions   []string       `json:"permissions"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type ProfileEnvelope struct {
	Success bool            `json:"success"`
	Data    ProfileResponse `json:"data"`
}
