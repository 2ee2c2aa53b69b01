package grant

import (
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
)

// PermissionsData carries both the raw grants and their compilation. Clients
// compile Grants themselves; the compiled fields come from the same compiler.
type PermissionsData struct {
	Permissions       []string                 `json:"permissions"`
	PermissionMatrix  access.Matrix            `json:"permissionMatrix"`
	SystemPermissions access.SystemPermissions `json:"systemPermissions"`
	Grants            []access.GrantRecord     `json:"grants"`
	NextExpiry        *time.Time               `json:"nextExpiry,omitempty"`
}

type PermissionsResponse struct {
	Success bool             `json:"success"`
	Data    *PermissionsData `json:"data"`
}
