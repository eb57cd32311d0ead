// Package rbac implements role-based access control for monitor operations.
// A single super admin sits above a fixed four-role hierarchy; admins may
// manage the roles beneath them but can never touch the super admin.
package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCannotDemoteSuperAdmin rejects any role change targeting the super
// admin. The super admin only changes through TransferSuperAdmin.
var ErrCannotDemoteSuperAdmin = errors.New("cannot change role of the super admin")

// Role orders the monitor hierarchy from least to most privileged. The zero
// value is Viewer, which is also the default for unassigned identities.
type Role uint8

const (
	RoleViewer Role = iota
	RoleDataIngester
	RoleOperator
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleViewer:       "viewer",
	RoleDataIngester: "data_ingester",
	RoleOperator:     "operator",
	RoleAdmin:        "admin",
	RoleSuperAdmin:   "super_admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole maps a role name back to its Role.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return RoleViewer, fmt.Errorf("unknown role %q", name)
}

func (r Role) MarshalJSON() ([]byte, error) {
	name, ok := roleNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown role %d", uint8(r))
	}
	return json.Marshal(name)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	role, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Permission names a guarded capability.
type Permission uint8

const (
	PermViewEvents Permission = iota
	PermCaptureEvents
	PermAddApplication
	PermRemoveApplication
	PermModifyMetrics
	PermManageRoles
	PermControlIngestion
	PermConfigureSystem
)

var permissionNames = map[Permission]string{
	PermViewEvents:        "view_events",
	PermCaptureEvents:     "capture_events",
	PermAddApplication:    "add_application",
	PermRemoveApplication: "remove_application",
	PermModifyMetrics:     "modify_metrics",
	PermManageRoles:       "manage_roles",
	PermControlIngestion:  "control_ingestion",
	PermConfigureSystem:   "configure_system",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("permission(%d)", uint8(p))
}

func (p Permission) MarshalJSON() ([]byte, error) {
	name, ok := permissionNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown permission %d", uint8(p))
	}
	return json.Marshal(name)
}

func (p *Permission) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for perm, n := range permissionNames {
		if n == name {
			*p = perm
			return nil
		}
	}
	return fmt.Errorf("unknown permission %q", name)
}

var rolePermissions = map[Role][]Permission{
	RoleViewer: {PermViewEvents},
	RoleDataIngester: {
		PermViewEvents,
		PermCaptureEvents,
	},
	RoleOperator: {
		PermViewEvents,
		PermCaptureEvents,
		PermAddApplication,
		PermRemoveApplication,
	},
	RoleAdmin: {
		PermViewEvents,
		PermCaptureEvents,
		PermAddApplication,
		PermRemoveApplication,
		PermModifyMetrics,
		PermManageRoles,
		PermControlIngestion,
	},
	RoleSuperAdmin: {
		PermViewEvents,
		PermCaptureEvents,
		PermAddApplication,
		PermRemoveApplication,
		PermModifyMetrics,
		PermManageRoles,
		PermControlIngestion,
		PermConfigureSystem,
	},
}

// RoleHasPermission reports whether role grants permission.
func RoleHasPermission(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RolePermissions returns the permissions granted to role.
func RolePermissions(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Authority tracks role assignments under a single super admin. Safe for
// concurrent use.
type Authority struct {
	mu sync.RWMutex

	superAdmin  string
	assignments map[string]Role
}

// New returns an authority rooted at superAdmin.
func New(superAdmin string) *Authority {
	return &Authority{
		superAdmin:  superAdmin,
		assignments: make(map[string]Role),
	}
}

// Role resolves the role of identity. The super admin always resolves to
// RoleSuperAdmin; unassigned identities default to RoleViewer.
func (a *Authority) Role(identity string) Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roleLocked(identity)
}

func (a *Authority) roleLocked(identity string) Role {
	if identity == a.superAdmin {
		return RoleSuperAdmin
	}
	if role, ok := a.assignments[identity]; ok {
		return role
	}
	return RoleViewer
}

// HasPermission reports whether identity holds permission.
func (a *Authority) HasPermission(identity string, permission Permission) bool {
	return RoleHasPermission(a.Role(identity), permission)
}

// CanManage reports whether manager may assign or remove the role of target.
// The super admin manages everyone, itself included; admins manage operators,
// data ingesters and viewers.
func (a *Authority) CanManage(manager, target string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.canManageLocked(manager, target)
}

func (a *Authority) canManageLocked(manager, target string) bool {
	switch a.roleLocked(manager) {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return a.roleLocked(target) <= RoleOperator
	default:
		return false
	}
}

// AssignRole sets the role of identity. Assigning the super admin any role
// other than RoleSuperAdmin fails; re-assigning RoleSuperAdmin is a no-op.
func (a *Authority) AssignRole(identity string, role Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if identity == a.superAdmin {
		if role != RoleSuperAdmin {
			return ErrCannotDemoteSuperAdmin
		}
		return nil
	}
	a.assignments[identity] = role
	return nil
}

// RemoveRole drops the assignment of identity, reverting it to RoleViewer.
func (a *Authority) RemoveRole(identity string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if identity == a.superAdmin {
		return ErrCannotDemoteSuperAdmin
	}
	delete(a.assignments, identity)
	return nil
}

// SuperAdmin returns the current super admin identity.
func (a *Authority) SuperAdmin() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.superAdmin
}

// TransferSuperAdmin hands the super admin role to newSuperAdmin and wipes
// every other assignment.
func (a *Authority) TransferSuperAdmin(newSuperAdmin string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.superAdmin = newSuperAdmin
	a.assignments = make(map[string]Role)
}

// Snapshot is the serializable authority state.
type Snapshot struct {
	SuperAdmin  string          `json:"super_admin"`
	Assignments map[string]Role `json:"assignments"`
}

// Snapshot captures the authority state for persistence.
func (a *Authority) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Snapshot{
		SuperAdmin:  a.superAdmin,
		Assignments: make(map[string]Role, len(a.assignments)),
	}
	for id, role := range a.assignments {
		s.Assignments[id] = role
	}
	return s
}

// Restore replaces the authority state with a previously captured snapshot.
func (a *Authority) Restore(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.superAdmin = s.SuperAdmin
	a.assignments = make(map[string]Role, len(s.Assignments))
	for id, role := range s.Assignments {
		a.assignments[id] = role
	}
}
