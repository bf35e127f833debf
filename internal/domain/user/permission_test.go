package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanPerform_RoleTable(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		permission Permission
		isOwner    bool
		want       bool
	}{
		{"employee confirms own", RoleEmployee, PermissionPayrollConfirmOwn, true, true},
		{"employee confirms other", RoleEmployee, PermissionPayrollConfirmOwn, false, false},
		{"employee disputes own", RoleEmployee, PermissionPayrollDisputeOwn, true, true},
		{"employee cannot create", RoleEmployee, PermissionPayrollCreate, false, false},
		{"employee cannot approve own", RoleEmployee, PermissionPayrollApprove, true, false},
		{"hr creates", RoleHRAdmin, PermissionPayrollCreate, false, true},
		{"hr cannot approve", RoleHRAdmin, PermissionPayrollApprove, false, false},
		{"hr revises", RoleHRAdmin, PermissionPayrollRevise, false, true},
		{"hr confirms own statement", RoleHRAdmin, PermissionPayrollConfirmOwn, true, true},
		{"admin approves", RoleAdministrator, PermissionPayrollApprove, false, true},
		{"admin rejects dispute", RoleAdministrator, PermissionPayrollRejectDispute, false, true},
		{"unknown role", Role("contractor"), PermissionPayrollViewOwn, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.role, tt.permission, tt.isOwner))
		})
	}
}

func TestSamePerson(t *testing.T) {
	assert.True(t, SamePerson("u1", "", "", "u1", "", ""))
	assert.False(t, SamePerson("u1", "Ana", "Putri", "u2", "Budi", "Santoso"))
	assert.True(t, SamePerson("u1", "  Ana ", "PUTRI", "u2", "ana", "putri"))
	assert.False(t, SamePerson("u1", "", "", "u2", "", ""), "empty names never match")
	assert.False(t, SamePerson("", "Ana", "", "", "Ana", ""), "partial names never match")
}

func TestNormalizedName(t *testing.T) {
	assert.Equal(t, "siti nur aisyah", NormalizedName("Siti  Nur", " Aisyah "))
	assert.Equal(t, "", NormalizedName("Siti", "  "))
}
