package auth

import (
	"testing"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role models.Role
		op   Operation
		want bool
	}{
		{models.RoleUser, OpViewTemplates, true},
		{models.RoleUser, OpSignConsent, true},
		{models.RoleUser, OpListOwnConsents, true},
		{models.RoleUser, OpManageTemplates, false},
		{models.RoleUser, OpListAllConsents, false},
		{models.RoleAdmin, OpManageTemplates, true},
		{models.RoleAdmin, OpListAllConsents, true},
		{models.RoleAdmin, OpViewTemplates, true},
		{models.RoleAdmin, OpListOwnConsents, true},
		{models.RoleAdmin, OpSignConsent, false},
		{models.Role("GUEST"), OpViewTemplates, false},
		{models.RoleAdmin, Operation("templates:purge"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.op))
		})
	}
}
