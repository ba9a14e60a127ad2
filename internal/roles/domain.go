package roles

import (
	"time"

	"github.com/meridian-saas/meridian/internal/authz"
)

// Role is the administrable form of a permission grouping. Company roles
// carry a company id and never company permissions; platform roles carry
// no company id and may hold both grant lists.
type Role struct {
	ID                 int64          `json:"id"`
	Type               authz.RoleType `json:"type"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	CompanyID          int64          `json:"companyId,omitempty"`
	Permissions        []string       `json:"permissions"`
	CompanyPermissions []string       `json:"companyPermissions,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// CatalogEntry documents one known permission token. The catalog is
// advisory: role grants accept any well-formed token, known or not.
type CatalogEntry struct {
	Token       string `json:"token"`
	Description string `json:"description"`
	Platform    bool   `json:"platform"`
}

// Catalog lists the permissions the server itself checks, grouped the way
// the route tree uses them.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		{Token: "platform:companies", Description: "Administer companies", Platform: true},
		{Token: "platform:users", Description: "Administer internal users", Platform: true},
		{Token: "platform:roles", Description: "Administer platform roles", Platform: true},
		{Token: "platform:restrictions", Description: "Administer company allow-lists", Platform: true},
		{Token: "user:read", Description: "View company users"},
		{Token: "user:manage", Description: "Manage company users and roles"},
		{Token: "office:read", Description: "View offices"},
		{Token: "office:manage", Description: "Manage offices"},
		{Token: "template:read", Description: "View document templates"},
		{Token: "template:manage", Description: "Manage document templates"},
		{Token: "priceguide:read", Description: "View price guides"},
		{Token: "priceguide:manage", Description: "Manage price guides"},
	}
}
