package access

import (
	"log/slog"
	"sort"
	"time"
)

// Snapshot is the compiled, immutable authorization state of one principal.
type Snapshot struct {
	Matrix Matrix
	System SystemPermissions
	// NextExpiry is the earliest override expiry among the compiled grants.
	// The snapshot is stale from that moment on.
	NextExpiry *time.Time

	flat     map[string]struct{}
	flatList []string
}

// EmptySnapshot denies everything.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Matrix: Matrix{modules: map[string]ModuleEntry{}},
		flat:   map[string]struct{}{},
	}
}

// Permissions returns the flat permission keys (moduleId:action and
// moduleId:formId:action), sorted.
func (s *Snapshot) Permissions() []string {
	out := make([]string, len(s.flatList))
	copy(out, s.flatList)
	return out
}

// Recorder observes compile runs. internal/metrics implements it.
type Recorder interface {
	ObserveCompile(duration time.Duration, used, skipped int)
}

type Compiler struct {
	logger   *slog.Logger
	recorder Recorder
}

type CompilerOption func(*Compiler)

func WithRecorder(r Recorder) CompilerOption {
	return func(c *Compiler) {
		c.recorder = r
	}
}

func NewCompiler(logger *slog.Logger, opts ...CompilerOption) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Compiler{logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile turns grant records into a Snapshot in a single pass. Malformed
// records are skipped; an input with no usable record compiles to an empty
// matrix. Grants for the same resource are merged by union, so the result does
// not depend on record order.
func (c *Compiler) Compile(grants []GrantRecord) *Snapshot {
	start := time.Now()

	snap := EmptySnapshot()
	skipped := 0

	for i, g := range grants {
		if g.IsSystemAdmin {
			snap.System.IsAdmin = true
		}
		if err := g.Validate(); err != nil {
			skipped++
			c.logger.Warn("skipping malformed grant", "index", i, "resource_type", g.ResourceType, "error", err)
			continue
		}

		caps := g.Permissions.Capabilities()
		switch g.ResourceType {
		case ResourceModule:
			entry := snap.ensureModule(g.ResourceID)
			entry.Permissions = entry.Permissions.Union(caps)
			snap.Matrix.modules[g.ResourceID] = entry
			snap.addFlat(g.ResourceID, caps)
		case ResourceForm:
			moduleID := g.Resource.ModuleID
			entry := snap.ensureModule(moduleID)
			form := entry.SubModules[g.ResourceID]
			form.Permissions = form.Permissions.Union(caps)
			entry.SubModules[g.ResourceID] = form
			snap.Matrix.modules[moduleID] = entry
			snap.addFlat(moduleID+":"+g.ResourceID, caps)
		case ResourceSystem:
			if caps.Allows(ActionManage) {
				switch g.ResourceID {
				case SystemCapabilityUsers:
					snap.System.CanManageUsers = true
				case SystemCapabilityRoles:
					snap.System.CanManageRoles = true
				case SystemCapabilityPermissions:
					snap.System.CanManagePermissions = true
				}
			}
		}

		if g.ExpiresAt != nil && (snap.NextExpiry == nil || g.ExpiresAt.Before(*snap.NextExpiry)) {
			expiry := *g.ExpiresAt
			snap.NextExpiry = &expiry
		}
	}

	if snap.System.IsAdmin {
		snap.System = adminSystemPermissions()
	}

	snap.flatList = make([]string, 0, len(snap.flat))
	for key := range snap.flat {
		snap.flatList = append(snap.flatList, key)
	}
	sort.Strings(snap.flatList)

	used := len(grants) - skipped
	if c.recorder != nil {
		c.recorder.ObserveCompile(time.Since(start), used, skipped)
	}
	c.logger.Debug("permission matrix compiled",
		"grants", len(grants),
		"skipped", skipped,
		"modules", snap.Matrix.Len(),
		"system_admin", snap.System.IsAdmin)

	return snap
}

func (s *Snapshot) ensureModule(moduleID string) ModuleEntry {
	entry, ok := s.Matrix.modules[moduleID]
	if !ok {
		entry = ModuleEntry{SubModules: make(map[string]FormEntry)}
		s.Matrix.modules[moduleID] = entry
	}
	return entry
}

func (s *Snapshot) addFlat(prefix string, caps Capabilities) {
	for _, a := range caps.Actions() {
		s.flat[prefix+":"+a.String()] = struct{}{}
	}
}
