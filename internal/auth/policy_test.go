package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uptr(v uint64) *uint64 { return &v }

func TestCanManage(t *testing.T) {
	assert.False(t, CanManage(RoleRegular))
	assert.True(t, CanManage(RoleStaff))
	assert.True(t, CanManage(RoleAdmin))
}

func TestCanAccessObject(t *testing.T) {
	tests := []struct {
		name      string
		role      Role
		actorID   uint64
		createdBy *uint64
		want      bool
	}{
		{"admin sees own", RoleAdmin, 1, uptr(1), true},
		{"admin sees foreign", RoleAdmin, 1, uptr(2), true},
		{"admin sees orphaned", RoleAdmin, 1, nil, true},
		{"staff sees own", RoleStaff, 7, uptr(7), true},
		{"staff blocked from foreign", RoleStaff, 7, uptr(8), false},
		{"staff blocked from orphaned", RoleStaff, 7, nil, false},
		{"regular blocked from own", RoleRegular, 7, uptr(7), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessObject(tt.role, tt.actorID, tt.createdBy))
		})
	}
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{All: true}, ScopeFor(RoleAdmin, 1))
	assert.Equal(t, Scope{CreatorID: 9}, ScopeFor(RoleStaff, 9))
	// The zero scope for a regular actor pins created_by to account 0,
	// which never exists, so it matches no rows if it ever reaches a query.
	assert.Equal(t, Scope{}, ScopeFor(RoleRegular, 9))
}
