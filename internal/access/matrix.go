package access

import (
	"encoding/json"
	"maps"
	"sort"
)

type FormEntry struct {
	Permissions Capabilities `json:"permissions"`
}

type ModuleEntry struct {
	Permissions Capabilities         `json:"permissions"`
	SubModules  map[string]FormEntry `json:"subModules"`
}

// Matrix maps module id to its capabilities and those of its forms. A Matrix
// is never modified after the compiler hands it out; a refresh produces a new
// one.
type Matrix struct {
	modules map[string]ModuleEntry
}

// Module returns a copy of the module entry. ok is false when no grant ever
// reached the module.
func (m Matrix) Module(moduleID string) (ModuleEntry, bool) {
	entry, ok := m.modules[moduleID]
	if !ok {
		return ModuleEntry{}, false
	}
	entry.SubModules = maps.Clone(entry.SubModules)
	return entry, true
}

func (m Matrix) Form(moduleID, formID string) (FormEntry, bool) {
	entry, ok := m.modules[moduleID]
	if !ok {
		return FormEntry{}, false
	}
	form, ok := entry.SubModules[formID]
	return form, ok
}

// ModuleIDs returns the ids of every present module, sorted.
func (m Matrix) ModuleIDs() []string {
	ids := make([]string, 0, len(m.modules))
	for id := range m.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m Matrix) Len() int {
	return len(m.modules)
}

func (m Matrix) MarshalJSON() ([]byte, error) {
	if m.modules == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.modules)
}

func (m *Matrix) UnmarshalJSON(data []byte) error {
	modules := make(map[string]ModuleEntry)
	if err := json.Unmarshal(data, &modules); err != nil {
		return err
	}
	for id, entry := range modules {
		if entry.SubModules == nil {
			entry.SubModules = make(map[string]FormEntry)
			modules[id] = entry
		}
	}
	m.modules = modules
	return nil
}

// SystemPermissions are the system-wide capabilities of a principal.
type SystemPermissions struct {
	IsAdmin              bool `json:"isAdmin"`
	CanManageUsers       bool `json:"canManageUsers"`
	CanManageRoles       bool `json:"canManageRoles"`
	CanManagePermissions bool `json:"canManagePermissions"`
}

// adminSystemPermissions is what a system admin holds regardless of grants.
func adminSystemPermissions() SystemPermissions {
	return SystemPermissions{
		IsAdmin:              true,
		CanManageUsers:       true,
		CanManageRoles:       true,
		CanManagePermissions: true,
	}
}
