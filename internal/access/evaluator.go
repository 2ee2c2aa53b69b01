package access

// Evaluator answers point-in-time authorization questions against one
// snapshot. It never mutates the snapshot and is safe for concurrent use.
type Evaluator struct {
	snapshot    *Snapshot
	systemAdmin bool
}

// NewEvaluator binds a snapshot and the principal's system-admin flag. A nil
// snapshot behaves like an empty one.
func NewEvaluator(snapshot *Snapshot, systemAdmin bool) Evaluator {
	if snapshot == nil {
		snapshot = EmptySnapshot()
	}
	return Evaluator{snapshot: snapshot, systemAdmin: systemAdmin}
}

func (e Evaluator) SystemAdmin() bool {
	return e.systemAdmin
}

// HasPermission tests a flat key such as "hr:view" or "hr:f1:edit".
func (e Evaluator) HasPermission(key string) bool {
	if e.systemAdmin {
		return true
	}
	_, ok := e.snapshot.flat[key]
	return ok
}

// HasModulePermission and HasFormPermission deny an action outside the
// canonical set for every principal, admins included, the same way Check does
// for an unknown action string. The admin bypass covers canonical actions only.
func (e Evaluator) HasModulePermission(moduleID string, action Action) bool {
	if !action.Valid() {
		return false
	}
	if e.systemAdmin {
		return true
	}
	entry, ok := e.snapshot.Matrix.modules[moduleID]
	if !ok {
		return false
	}
	return entry.Permissions.Allows(action)
}

func (e Evaluator) HasFormPermission(moduleID, formID string, action Action) bool {
	if !action.Valid() {
		return false
	}
	if e.systemAdmin {
		return true
	}
	entry, ok := e.snapshot.Matrix.modules[moduleID]
	if !ok {
		return false
	}
	form, ok := entry.SubModules[formID]
	if !ok {
		return false
	}
	return form.Permissions.Allows(action)
}

// Check is the string boundary used by guards and the CLI. An action outside
// the canonical set is denied for every principal, admins included.
func (e Evaluator) Check(moduleID, formID, action string) bool {
	a, ok := ParseAction(action)
	if !ok {
		return false
	}
	if formID == "" {
		return e.HasModulePermission(moduleID, a)
	}
	return e.HasFormPermission(moduleID, formID, a)
}

// System returns the system capabilities, all granted for an admin.
func (e Evaluator) System() SystemPermissions {
	if e.systemAdmin {
		return adminSystemPermissions()
	}
	return e.snapshot.System
}

// Navigable reports whether any grant reached the module.
func (e Evaluator) Navigable(moduleID string) bool {
	if e.systemAdmin {
		return true
	}
	_, ok := e.snapshot.Matrix.modules[moduleID]
	return ok
}
