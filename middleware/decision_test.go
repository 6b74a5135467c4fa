package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrEthical07/goSession/identity"
)

func TestCanAccess(t *testing.T) {
	paths := DefaultPaths()
	cases := []struct {
		name     string
		required []identity.Role
		current  identity.Role
		want     Decision
	}{
		{"anonymous to vendor route", []identity.Role{identity.RoleVendor}, identity.RoleAnonymous, RedirectTo("/vendor/login")},
		{"vendor to admin route", []identity.Role{identity.RoleAdmin}, identity.RoleVendor, RedirectTo("/not-authorized")},
		{"vendor to vendor route", []identity.Role{identity.RoleVendor}, identity.RoleVendor, Allowed()},
		{"first role picks login", []identity.Role{identity.RoleAdmin, identity.RoleVendor}, identity.RoleAnonymous, RedirectTo("/admin/login")},
		{"any listed role", []identity.Role{identity.RoleUser, identity.RoleVendor}, identity.RoleVendor, Allowed()},
		{"empty admits authenticated", nil, identity.RoleUser, Allowed()},
		{"empty sends anonymous to user login", nil, identity.RoleAnonymous, RedirectTo("/login")},
		{"admin not implied", []identity.Role{identity.RoleUser}, identity.RoleAdmin, RedirectTo("/not-authorized")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccess(tc.required, tc.current, paths))
		})
	}
}

func TestLoginForCustomPaths(t *testing.T) {
	p := Paths{UserLogin: "/u", VendorLogin: "/v", AdminLogin: "/a", NotAuthorized: "/x"}
	assert.Equal(t, "/u", p.LoginFor(identity.RoleUser))
	assert.Equal(t, "/v", p.LoginFor(identity.RoleVendor))
	assert.Equal(t, "/a", p.LoginFor(identity.RoleAdmin))
	assert.Equal(t, "/u", p.LoginFor(identity.RoleAnonymous))
}
