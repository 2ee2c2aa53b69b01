package access

import (
	"errors"
	"fmt"
	"time"
)

type ResourceType string

const (
	ResourceModule ResourceType = "module"
	ResourceForm   ResourceType = "form"
	// ResourceSystem records carry system-wide capabilities. The resource id
	// names the capability (see SystemCapability* constants).
	ResourceSystem ResourceType = "system"
)

const (
	SystemCapabilityUsers       = "users"
	SystemCapabilityRoles       = "roles"
	SystemCapabilityPermissions = "permissions"
	// SystemMarker identifies the placeholder record emitted for a system
	// admin that holds no other grant.
	SystemMarker = "*"
)

var ErrMalformedGrant = errors.New("malformed grant")

// GrantResource carries the owning module of a form grant.
type GrantResource struct {
	ModuleID string `json:"moduleId"`
}

// GrantPermissions is the wire shape of a grant's capabilities.
type GrantPermissions struct {
	CanView   bool `json:"canView"`
	CanCreate bool `json:"canCreate"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanManage bool `json:"canManage"`
}

func (p GrantPermissions) Capabilities() Capabilities {
	var c Capabilities
	if p.CanView {
		c = c.With(ActionView)
	}
	if p.CanCreate {
		c = c.With(ActionAdd)
	}
	if p.CanEdit {
		c = c.With(ActionEdit)
	}
	if p.CanDelete {
		c = c.With(ActionDelete)
	}
	if p.CanManage {
		c = c.With(ActionManage)
	}
	return c
}

func PermissionsFrom(c Capabilities) GrantPermissions {
	return GrantPermissions{
		CanView:   c.Allows(ActionView),
		CanCreate: c.Allows(ActionAdd),
		CanEdit:   c.Allows(ActionEdit),
		CanDelete: c.Allows(ActionDelete),
		CanManage: c.Allows(ActionManage),
	}
}

// GrantRecord is one resolved grant as delivered by the backend, either
// embedded in the login response or returned by the permissions endpoint.
type GrantRecord struct {
	ResourceType  ResourceType     `json:"resourceType"`
	ResourceID    string           `json:"resourceId"`
	Resource      *GrantResource   `json:"resource,omitempty"`
	IsSystemAdmin bool             `json:"isSystemAdmin"`
	Permissions   GrantPermissions `json:"permissions"`
	// ExpiresAt is the earliest expiry of an override that shaped this record.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ModuleID returns the module the record is scoped to.
func (g GrantRecord) ModuleID() string {
	switch g.ResourceType {
	case ResourceModule:
		return g.ResourceID
	case ResourceForm:
		if g.Resource != nil {
			return g.Resource.ModuleID
		}
	}
	return ""
}

func (g GrantRecord) Validate() error {
	if g.ResourceID == "" {
		return fmt.Errorf("%w: missing resourceId", ErrMalformedGrant)
	}
	switch g.ResourceType {
	case ResourceModule, ResourceSystem:
		return nil
	case ResourceForm:
		if g.Resource == nil || g.Resource.ModuleID == "" {
			return fmt.Errorf("%w: form %q has no owning module", ErrMalformedGrant, g.ResourceID)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown resourceType %q", ErrMalformedGrant, g.ResourceType)
}
