package policy

import "github.com/yukikurage/project-management-api/internal/models"

// Principal is the authenticated actor performing a request.
type Principal struct {
	ID          uint64
	IsSuperuser bool
	IsActive    bool
}

// FromUser builds a Principal from a user record.
func FromUser(user *models.User) Principal {
	return Principal{
		ID:          user.ID,
		IsSuperuser: user.IsSuperuser,
		IsActive:    user.IsActive,
	}
}

// CanAccessProject reports whether the principal may read, update or delete
// the project. Ownership is all-or-nothing: there are no finer-grained
// permission levels.
func CanAccessProject(p Principal, project *models.Project) bool {
	return p.IsSuperuser || project.OwnerID == p.ID
}

// CanAccessTask reports whether the principal may read, update or delete the
// task. A task has no ownership of its own; access is derived entirely from
// its parent project. The assignee gets no elevated rights.
func CanAccessTask(p Principal, project *models.Project) bool {
	return CanAccessProject(p, project)
}

// CanAccessUser reports whether the principal may read or modify the given
// user record: themselves, or anyone if superuser.
func CanAccessUser(p Principal, userID uint64) bool {
	return p.IsSuperuser || p.ID == userID
}
