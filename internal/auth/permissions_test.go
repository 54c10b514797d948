package auth

import (
	"context"
	"testing"
)

func TestPermissionCatalog_Complete(t *testing.T) {
	catalog := PermissionCatalog()

	if len(catalog) != 20 {
		t.Fatalf("catalog size = %d, want 20", len(catalog))
	}

	names := make(map[string]bool)
	for _, p := range catalog {
		if p.Description == "" {
			t.Errorf("permission %s has no description", p.Name)
		}
		if names[p.Name] {
			t.Errorf("duplicate permission %s", p.Name)
		}
		names[p.Name] = true
	}

	for _, resource := range []string{"item", "category", "tag", "folder", "user"} {
		for _, action := range []string{"create", "read", "update", "delete"} {
			name := resource + "." + action
			if !names[name] {
				t.Errorf("catalog missing %s", name)
			}
		}
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		role      Role
		grant     []string
		deny      []string
		wantCount int
	}{
		{
			role:      RoleAdmin,
			grant:     []string{PermItemDelete, PermUserCreate, PermUserDelete},
			wantCount: 20,
		},
		{
			role:      RoleManager,
			grant:     []string{PermItemCreate, PermFolderDelete},
			deny:      []string{PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete},
			wantCount: 16,
		},
		{
			role:      RoleUser,
			grant:     []string{PermItemCreate, PermTagUpdate, PermFolderDelete, PermUserRead},
			deny:      []string{PermUserCreate, PermUserUpdate, PermUserDelete},
			wantCount: 17,
		},
		{
			role:      RoleViewer,
			grant:     []string{PermItemRead, PermCategoryRead, PermUserRead},
			deny:      []string{PermItemCreate, PermItemUpdate, PermItemDelete, PermUserCreate},
			wantCount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			granted := make(map[string]bool)
			for _, name := range PolicyFor(tt.role) {
				granted[name] = true
			}

			if len(granted) != tt.wantCount {
				t.Errorf("grant count = %d, want %d", len(granted), tt.wantCount)
			}
			for _, name := range tt.grant {
				if !granted[name] {
					t.Errorf("%s should be granted %s", tt.role, name)
				}
			}
			for _, name := range tt.deny {
				if granted[name] {
					t.Errorf("%s should not be granted %s", tt.role, name)
				}
			}
		})
	}
}

func TestPolicyFor_UnknownRole(t *testing.T) {
	if got := PolicyFor(Role("SUPERUSER")); len(got) != 0 {
		t.Errorf("unknown role grants = %v, want none", got)
	}
}

func TestPermissionRepository_RoleHasPermission(t *testing.T) {
	db := testDB(t)
	repo := seedPolicy(t, db)
	ctx := context.Background()

	tests := []struct {
		role       Role
		permission string
		want       bool
	}{
		{RoleViewer, PermItemRead, true},
		{RoleViewer, PermItemCreate, false},
		{RoleManager, PermItemDelete, true},
		{RoleManager, PermUserRead, false},
		{RoleUser, PermUserRead, true},
		{RoleUser, PermUserDelete, false},
		{RoleAdmin, PermUserDelete, true},
		{Role("SUPERUSER"), PermItemRead, false},
		{RoleAdmin, "item.export", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.permission, func(t *testing.T) {
			got, err := repo.RoleHasPermission(ctx, tt.role, tt.permission)
			if err != nil {
				t.Fatalf("RoleHasPermission() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RoleHasPermission(%s, %s) = %v, want %v", tt.role, tt.permission, got, tt.want)
			}
		})
	}
}

func TestPermissionRepository_ListForRole(t *testing.T) {
	db := testDB(t)
	repo := seedPolicy(t, db)

	defs, err := repo.ListForRole(context.Background(), RoleViewer)
	if err != nil {
		t.Fatalf("ListForRole() error = %v", err)
	}
	if len(defs) != 5 {
		t.Errorf("viewer grants = %d, want 5", len(defs))
	}
	for _, d := range defs {
		if d.Description == "" {
			t.Errorf("grant %s has no description", d.Name)
		}
	}

	none, err := repo.ListForRole(context.Background(), Role("SUPERUSER"))
	if err != nil {
		t.Fatalf("ListForRole() unknown role error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unknown role grants = %d, want 0", len(none))
	}
}
