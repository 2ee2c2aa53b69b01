package access

import (
	"encoding/json"
	"strings"
)

// Action is one of the five canonical capabilities. Values can only be
// obtained from the exported variables or ParseAction; the zero value
// matches no capability and therefore always denies.
type Action struct {
	bit uint8
}

var (
	ActionView   = Action{bit: 1 << 0}
	ActionAdd    = Action{bit: 1 << 1}
	ActionEdit   = Action{bit: 1 << 2}
	ActionDelete = Action{bit: 1 << 3}
	ActionManage = Action{bit: 1 << 4}
)

var actionNames = map[Action]string{
	ActionView:   "view",
	ActionAdd:    "add",
	ActionEdit:   "edit",
	ActionDelete: "delete",
	ActionManage: "manage",
}

// Actions returns the canonical actions in display order.
func Actions() []Action {
	return []Action{ActionView, ActionAdd, ActionEdit, ActionDelete, ActionManage}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseAction maps a request string to an Action. "create" is accepted as an
// alias of "add" because grant payloads use canCreate.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return ActionView, true
	case "add", "create":
		return ActionAdd, true
	case "edit":
		return ActionEdit, true
	case "delete":
		return ActionDelete, true
	case "manage":
		return ActionManage, true
	}
	return Action{}, false
}

// Capabilities is the set of actions allowed on a single module or form.
type Capabilities struct {
	mask uint8
}

func NewCapabilities(actions ...Action) Capabilities {
	var c Capabilities
	for _, a := range actions {
		c = c.With(a)
	}
	return c
}

// Allows reports whether a is in the set. Total over every Action value.
func (c Capabilities) Allows(a Action) bool {
	return c.mask&a.bit != 0
}

func (c Capabilities) With(a Action) Capabilities {
	return Capabilities{mask: c.mask | a.bit}
}

func (c Capabilities) Union(o Capabilities) Capabilities {
	return Capabilities{mask: c.mask | o.mask}
}

func (c Capabilities) IsEmpty() bool {
	return c.mask == 0
}

// Actions lists the allowed actions in canonical order.
func (c Capabilities) Actions() []Action {
	var out []Action
	for _, a := range Actions() {
		if c.Allows(a) {
			out = append(out, a)
		}
	}
	return out
}

type capabilitiesJSON struct {
	CanView   bool `json:"canView"`
	CanAdd    bool `json:"canAdd"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanManage bool `json:"canManage"`
}

func (c Capabilities) MarshalJSON() ([]byte, error) {
	return json.Marshal(capabilitiesJSON{
		CanView:   c.Allows(ActionView),
		CanAdd:    c.Allows(ActionAdd),
		CanEdit:   c.Allows(ActionEdit),
		CanDelete: c.Allows(ActionDelete),
		CanManage: c.Allows(ActionManage),
	})
}

func (c *Capabilities) UnmarshalJSON(data []byte) error {
	var raw struct {
		capabilitiesJSON
		CanCreate bool `json:"canCreate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = GrantPermissions{
		CanView:   raw.CanView,
		CanCreate: raw.CanAdd || raw.CanCreate,
		CanEdit:   raw.CanEdit,
		CanDelete: raw.CanDelete,
		CanManage: raw.CanManage,
	}.Capabilities()
	return nil
}
