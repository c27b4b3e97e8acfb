package service

import "exam-portal/internal/model"

// CanDeactivate reports whether actor may change target's active flag.
func CanDeactivate(actor model.Principal, target model.Admin) error {
	if !actor.IsAdmin() {
		return forbidden("only admins can manage admin accounts")
	}
	if actor.ID == target.ID {
		return forbidden("you cannot deactivate your own account")
	}
	if target.IsSuperAdmin && !actor.SuperAdmin() {
		return forbidden("only a super admin can change the status of a super admin")
	}
	return nil
}

// CanDelete applies the deactivation rules and also refuses to delete an
// admin who still owns admins they created.
func CanDelete(actor model.Principal, target model.Admin, createdCount int) error {
	if !actor.IsAdmin() {
		return forbidden("only admins can manage admin accounts")
	}
	if actor.ID == target.ID {
		return forbidden("you cannot delete your own account")
	}
	if target.IsSuperAdmin && !actor.SuperAdmin() {
		return forbidden("only a super admin can delete a super admin")
	}
	if createdCount > 0 {
		return forbidden("admin has created other admins; reassign or remove them first")
	}
	return nil
}

func CanToggleSuperAdmin(actor model.Principal, target model.Admin) error {
	if !actor.SuperAdmin() {
		return forbidden("only a super admin can grant or revoke super admin")
	}
	if actor.ID == target.ID {
		return forbidden("you cannot change your own super admin flag")
	}
	return nil
}
