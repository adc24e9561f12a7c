package auth

import (
	"fmt"
	"go-cms-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

// Roles seeded on startup.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Resources and actions checked by the HTTP layer.
const (
	ResourcePages = "pages"
	ResourceAudit = "audit"

	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionPublish = "publish"
)

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start. Subjects listed in admins are granted the admin role.
func SeedDefaultPolicies(e casbin.IEnforcer, admins []string, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	policies := [][]string{
		// Viewers can read pages and their history.
		{RoleViewer, ResourcePages, ActionRead},

		// Editors manage page content and publishing.
		{RoleEditor, ResourcePages, ActionCreate},
		{RoleEditor, ResourcePages, ActionUpdate},
		{RoleEditor, ResourcePages, ActionDelete},
		{RoleEditor, ResourcePages, ActionPublish},

		// Admins can also read the audit log.
		{RoleAdmin, ResourceAudit, ActionRead},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// admin -> editor -> viewer
	inherits := [][2]string{{RoleEditor, RoleViewer}, {RoleAdmin, RoleEditor}}
	for _, r := range inherits {
		if has, _ := e.HasRoleForUser(r[0], r[1]); !has {
			if _, err := e.AddRoleForUser(r[0], r[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", r[0], r[1]))
			}
		}
	}

	for _, subject := range admins {
		if subject == "" {
			continue
		}
		if has, _ := e.HasRoleForUser(subject, RoleAdmin); !has {
			if _, err := e.AddRoleForUser(subject, RoleAdmin); err != nil {
				log.Error(err, fmt.Sprintf("Failed to grant admin to '%s'", subject))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
