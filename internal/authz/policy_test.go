package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   Requirement
		ok     bool
	}{
		{
			name:   "canonical form",
			policy: "Permission:Navigation=products;Action=view",
			want:   Requirement{Navigation: NavProducts, Action: ActionView},
			ok:     true,
		},
		{
			name:   "segments reversed",
			policy: "Permission:Action=edit;Navigation=suppliers",
			want:   Requirement{Navigation: NavSuppliers, Action: ActionEdit},
			ok:     true,
		},
		{
			name:   "case insensitive",
			policy: "permission:NAVIGATION=Products;action=View",
			want:   Requirement{Navigation: NavProducts, Action: ActionView},
			ok:     true,
		},
		{
			name:   "surrounding whitespace",
			policy: "Permission: Navigation = products ; Action = view ",
			want:   Requirement{Navigation: NavProducts, Action: ActionView},
			ok:     true,
		},
		{
			name:   "unknown segment ignored",
			policy: "Permission:Navigation=products;Scope=all;Action=view",
			want:   Requirement{Navigation: NavProducts, Action: ActionView},
			ok:     true,
		},
		{name: "missing prefix", policy: "Navigation=products;Action=view"},
		{name: "missing action", policy: "Permission:Navigation=products"},
		{name: "missing navigation", policy: "Permission:Action=view"},
		{name: "unknown navigation", policy: "Permission:Navigation=ledger;Action=view"},
		{name: "unknown action", policy: "Permission:Navigation=products;Action=approve"},
		{name: "empty", policy: ""},
		{name: "plain role name", policy: "AdminOnly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePolicy(tt.policy)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPolicyNameRoundTrip(t *testing.T) {
	for _, nav := range Navigations() {
		for _, action := range Actions() {
			req := Requirement{Navigation: nav, Action: action}
			parsed, ok := ParsePolicy(req.PolicyName())
			require.True(t, ok, req.PolicyName())
			assert.Equal(t, req, parsed)
		}
	}
}

func TestParseNavigation(t *testing.T) {
	nav, ok := ParseNavigation("Products")
	require.True(t, ok)
	assert.Equal(t, NavProducts, nav)

	_, ok = ParseNavigation("ledger")
	assert.False(t, ok)
}
