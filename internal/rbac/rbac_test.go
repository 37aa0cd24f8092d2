package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "editor read", role: RoleEditor, action: ActionRead, allow: true},
		{name: "editor write", role: RoleEditor, action: ActionWrite, allow: true},
		{name: "editor publish", role: RoleEditor, action: ActionPublish, allow: true},
		{name: "editor manage users", role: RoleEditor, action: ActionManageUsers, allow: false},
		{name: "editor view audit", role: RoleEditor, action: ActionViewAudit, allow: false},
		{name: "admin manage users", role: RoleAdmin, action: ActionManageUsers, allow: true},
		{name: "admin view audit", role: RoleAdmin, action: ActionViewAudit, allow: true},
		{name: "none read", role: RoleNone, action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]Role{
		"admin":  RoleAdmin,
		"editor": RoleEditor,
		"viewer": RoleNone,
		"":       RoleNone,
		"ADMIN":  RoleNone,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
	if Valid("viewer") || !Valid("editor") {
		t.Fatal("Valid() disagrees with Normalize()")
	}
}
