package auth

import "strings"

// Permission names follow "{resource}.{action}". The catalog below is
// the authoritative list; role assignments derive from PolicyFor.
const (
	PermItemCreate = "item.create"
	PermItemRead   = "item.read"
	PermItemUpdate = "item.update"
	PermItemDelete = "item.delete"

	PermCategoryCreate = "category.create"
	PermCategoryRead   = "category.read"
	PermCategoryUpdate = "category.update"
	PermCategoryDelete = "category.delete"

	PermTagCreate = "tag.create"
	PermTagRead   = "tag.read"
	PermTagUpdate = "tag.update"
	PermTagDelete = "tag.delete"

	PermFolderCreate = "folder.create"
	PermFolderRead   = "folder.read"
	PermFolderUpdate = "folder.update"
	PermFolderDelete = "folder.delete"

	PermUserCreate = "user.create"
	PermUserRead   = "user.read"
	PermUserUpdate = "user.update"
	PermUserDelete = "user.delete"
)

// PermissionDef describes one catalog entry.
type PermissionDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PermissionCatalog returns the full permission catalog in stable order.
func PermissionCatalog() []PermissionDef {
	return []PermissionDef{
		{PermItemCreate, "Create new items"},
		{PermItemRead, "View items"},
		{PermItemUpdate, "Edit existing items"},
		{PermItemDelete, "Delete items"},
		{PermCategoryCreate, "Create new categories"},
		{PermCategoryRead, "View categories"},
		{PermCategoryUpdate, "Edit existing categories"},
		{PermCategoryDelete, "Delete categories"},
		{PermTagCreate, "Create new tags"},
		{PermTagRead, "View tags"},
		{PermTagUpdate, "Edit existing tags"},
		{PermTagDelete, "Delete tags"},
		{PermFolderCreate, "Create new folders"},
		{PermFolderRead, "View folders"},
		{PermFolderUpdate, "Edit existing folders"},
		{PermFolderDelete, "Delete folders"},
		{PermUserCreate, "Create new users"},
		{PermUserRead, "View users"},
		{PermUserUpdate, "Edit existing users"},
		{PermUserDelete, "Delete users"},
	}
}

// PolicyFor returns the permission names granted to a role.
//
// ADMIN holds everything. MANAGER holds everything except user
// administration. USER holds full control of inventory resources plus
// read access across the board. VIEWER is read-only. An unknown role
// gets nothing, so enforcement fails closed.
func PolicyFor(role Role) []string {
	catalog := PermissionCatalog()

	switch role {
	case RoleAdmin:
		names := make([]string, 0, len(catalog))
		for _, p := range catalog {
			names = append(names, p.Name)
		}
		return names

	case RoleManager:
		names := make([]string, 0, len(catalog))
		for _, p := range catalog {
			if strings.HasPrefix(p.Name, "user.") {
				continue
			}
			names = append(names, p.Name)
		}
		return names

	case RoleUser:
		names := make([]string, 0, len(catalog))
		for _, p := range catalog {
			if strings.HasSuffix(p.Name, ".read") || !strings.HasPrefix(p.Name, "user.") {
				names = append(names, p.Name)
			}
		}
		return names

	case RoleViewer:
		var names []string
		for _, p := range catalog {
			if strings.HasSuffix(p.Name, ".read") {
				names = append(names, p.Name)
			}
		}
		return names

	default:
		return nil
	}
}
