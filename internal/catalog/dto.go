package catalog

import "github.com/frahmantamala/backoffice-access/internal/access"

type ModuleResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	ParentID    *string                 `json:"parentId,omitempty"`
	Level       int                     `json:"level"`
	ModuleType  string                  `json:"moduleType"`
	Permissions access.GrantPermissions `json:"permissions"`
}

type FormResponse struct {
	ID          string                  `json:"id"`
	ModuleID    string                  `json:"moduleId"`
	Name        string                  `json:"name"`
	Permissions access.GrantPermissions `json:"permissions"`
}

type ModulesResponse struct {
	Success bool             `json:"success"`
	Modules []ModuleResponse `json:"modules"`
}

type FormsResponse struct {
	Success bool           `json:"success"`
	Forms   []FormResponse `json:"forms"`
}
