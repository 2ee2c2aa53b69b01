package access

import (
	"sort"
	"time"
)

type Category string

const (
	CategoryRead    Category = "READ"
	CategoryWrite   Category = "WRITE"
	CategoryDelete  Category = "DELETE"
	CategoryAdmin   Category = "ADMIN"
	CategorySpecial Category = "SPECIAL"
)

// DefaultAction is used when a permission row carries no explicit action.
// SPECIAL permissions have no canonical action and never reach the matrix.
func (c Category) DefaultAction() (Action, bool) {
	switch c {
	case CategoryRead:
		return ActionView, true
	case CategoryWrite:
		return ActionEdit, true
	case CategoryDelete:
		return ActionDelete, true
	case CategoryAdmin:
		return ActionManage, true
	}
	return Action{}, false
}

// PermissionRef is the immutable part of a permission that grants refer to.
type PermissionRef struct {
	ID           int64
	Name         string
	Category     Category
	Action       Action
	ResourceType ResourceType
	ResourceID   string
	// ModuleID is the owning module of a form-scoped permission.
	ModuleID string
}

// RoleGrant is a role-permission row joined with its permission.
type RoleGrant struct {
	RoleID     int64
	Permission PermissionRef
	ModuleID   *string
	Granted    bool
}

// Override is a user-specific grant or revoke of one permission.
type Override struct {
	ID         int64
	UserID     int64
	Permission PermissionRef
	ModuleID   *string
	Granted    bool
	Reason     string
	ExpiresAt  *time.Time
	IsActive   bool
	CreatedAt  time.Time
}

// Effective reports whether the override takes part in decisions at now.
// Inactive and expired overrides count as absent, not as denies.
func (o Override) Effective(now time.Time) bool {
	return o.IsActive && (o.ExpiresAt == nil || o.ExpiresAt.After(now))
}

// Resolve applies override precedence to a single decision: system admin,
// then the most recent effective override, then the role-derived value.
func Resolve(systemAdmin, roleDerived bool, overrides []Override, now time.Time) bool {
	if systemAdmin {
		return true
	}
	if o, ok := latestEffective(overrides, now); ok {
		return o.Granted
	}
	return roleDerived
}

func latestEffective(overrides []Override, now time.Time) (Override, bool) {
	var (
		best  Override
		found bool
	)
	for _, o := range overrides {
		if !o.Effective(now) {
			continue
		}
		if !found || o.CreatedAt.After(best.CreatedAt) || (o.CreatedAt.Equal(best.CreatedAt) && o.ID > best.ID) {
			best = o
			found = true
		}
	}
	return best, found
}

type scopeKey struct {
	permissionID int64
	moduleID     string
}

type resourceKey struct {
	resourceType ResourceType
	resourceID   string
	moduleID     string
}

// target resolves where a permission lands in the matrix. For module
// permissions a scoped moduleID takes precedence over the permission's own
// resource id.
func target(p PermissionRef, moduleID *string) resourceKey {
	switch p.ResourceType {
	case ResourceForm:
		owner := p.ModuleID
		if owner == "" && moduleID != nil {
			owner = *moduleID
		}
		return resourceKey{resourceType: ResourceForm, resourceID: p.ResourceID, moduleID: owner}
	case ResourceModule:
		rid := p.ResourceID
		if moduleID != nil && *moduleID != "" {
			rid = *moduleID
		}
		return resourceKey{resourceType: ResourceModule, resourceID: rid, moduleID: rid}
	}
	return resourceKey{resourceType: p.ResourceType, resourceID: p.ResourceID}
}

type decision struct {
	permission PermissionRef
	target     resourceKey
	role       bool
	overrides  []Override
}

// ApplyOverrides merges role grants with the user's overrides and returns
// the resulting grant records, sorted by resource. Every record carries the
// systemAdmin flag; an admin without grants receives a single system marker
// record so the flag still reaches the compiler.
func ApplyOverrides(roleGrants []RoleGrant, overrides []Override, systemAdmin bool, now time.Time) []GrantRecord {
	decisions := make(map[scopeKey]*decision)
	lookup := func(p PermissionRef, moduleID *string) *decision {
		t := target(p, moduleID)
		key := scopeKey{permissionID: p.ID, moduleID: t.moduleID}
		d, ok := decisions[key]
		if !ok {
			d = &decision{permission: p, target: t}
			decisions[key] = d
		}
		return d
	}

	for _, rg := range roleGrants {
		d := lookup(rg.Permission, rg.ModuleID)
		if rg.Granted {
			d.role = true
		}
	}
	for _, o := range overrides {
		if !o.Effective(now) {
			continue
		}
		d := lookup(o.Permission, o.ModuleID)
		d.overrides = append(d.overrides, o)
	}

	type pending struct {
		caps      Capabilities
		expiresAt *time.Time
	}
	resources := make(map[resourceKey]*pending)

	for _, d := range decisions {
		action := d.permission.Action
		if !action.Valid() {
			var ok bool
			if action, ok = d.permission.Category.DefaultAction(); !ok {
				continue
			}
		}

		p, ok := resources[d.target]
		if !ok {
			p = &pending{}
			resources[d.target] = p
		}
		if Resolve(false, d.role, d.overrides, now) {
			p.caps = p.caps.With(action)
		}
		if o, ok := latestEffective(d.overrides, now); ok && o.ExpiresAt != nil {
			if p.expiresAt == nil || o.ExpiresAt.Before(*p.expiresAt) {
				expiry := *o.ExpiresAt
				p.expiresAt = &expiry
			}
		}
	}

	records := make([]GrantRecord, 0, len(resources))
	for key, p := range resources {
		rec := GrantRecord{
			ResourceType:  key.resourceType,
			ResourceID:    key.resourceID,
			IsSystemAdmin: systemAdmin,
			Permissions:   PermissionsFrom(p.caps),
			ExpiresAt:     p.expiresAt,
		}
		if key.resourceType == ResourceForm {
			rec.Resource = &GrantResource{ModuleID: key.moduleID}
		}
		records = append(records, rec)
	}

	if systemAdmin && len(records) == 0 {
		records = append(records, GrantRecord{
			ResourceType:  ResourceSystem,
			ResourceID:    SystemMarker,
			IsSystemAdmin: true,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ResourceType != b.ResourceType {
			return a.ResourceType < b.ResourceType
		}
		if a.ModuleID() != b.ModuleID() {
			return a.ModuleID() < b.ModuleID()
		}
		return a.ResourceID < b.ResourceID
	})
	return records
}
