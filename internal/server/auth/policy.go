package auth

import "github.com/dmitrijs2005/consentkeeper/internal/server/models"

// Operation names a capability checked before a request reaches a service.
type Operation string

const (
	OpViewTemplates   Operation = "templates:view"
	OpManageTemplates Operation = "templates:manage"
	OpSignConsent     Operation = "consents:sign"
	OpListOwnConsents Operation = "consents:list-own"
	OpListAllConsents Operation = "consents:list-all"
)

var capabilities = map[models.Role]map[Operation]bool{
	models.RoleUser: {
		OpViewTemplates:   true,
		OpSignConsent:     true,
		OpListOwnConsents: true,
	},
	models.RoleAdmin: {
		OpViewTemplates:   true,
		OpManageTemplates: true,
		OpListOwnConsents: true,
		OpListAllConsents: true,
	},
}

// Allowed reports whether role may perform op. Unknown roles and operations
// are denied.
func Allowed(role models.Role, op Operation) bool {
	return capabilities[role][op]
}
