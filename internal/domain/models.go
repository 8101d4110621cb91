// Package domain defines the persistence models for users, catalog items,
// user generations, and audit log entries. These types are mapped with GORM
// and form the core data layer of the ItemGate application.
package domain

import "time"

// Role values for User.Role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Export status values for UserGeneration.ExportStatus.
const (
	ExportStatusNotExported = "not_exported"
	ExportStatusExported    = "exported"
)

// Audit status values for LogEntry.Status.
const (
	LogStatusPending   = "pending"
	LogStatusCompleted = "completed"
	LogStatusError     = "error"
)

// User is the authentication principal. Users own generations; the catalog
// itself is shared and admin-managed.
//
// Fields:
//   - ID: surrogate auto-increment primary key.
//   - Email: login identifier, unique across the system.
//   - PasswordHash: bcrypt hash; never serialized.
//   - Role: "admin" or "user" (enforced by DB constraint).
//   - IsActive: soft enable/disable switch for the account.
type User struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	Email        string    `json:"email"         gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"             gorm:"type:varchar(255);not null"`
	FullName     string    `json:"full_name"     gorm:"type:varchar(255)"`
	IsActive     bool      `json:"is_active"     gorm:"not null;default:true"`
	Role         string    `json:"role"          gorm:"type:varchar(16);not null;default:'user';check:role IN ('admin','user')"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// CatalogItem is one product in the shared catalog, loaded once by an admin
// from the marketplace API or an Excel upload and then used by all users.
// Items are never overwritten by re-imports: ExternalID uniqueness makes a
// duplicate import a skip, not an update.
//
// Fields:
//   - ID: surrogate auto-increment primary key (generations reference it).
//   - ExternalID: stable marketplace identifier, unique across the catalog.
//   - UID / SID / CategoryID: loosely typed marketplace identifiers kept as text.
//   - Material: optional material metadata.
//   - ImageTitle: optional secondary title used when building AI summaries.
//   - Price: non-negative; Balance: stock count, defaults to 0.
type CatalogItem struct {
	ID          uint      `json:"id"           gorm:"primaryKey"`
	ExternalID  string    `json:"external_id"  gorm:"type:varchar(36);not null;uniqueIndex"`
	UID         string    `json:"uid"          gorm:"type:varchar(36)"`
	SID         string    `json:"sid"          gorm:"type:varchar(36)"`
	Name        string    `json:"name"         gorm:"type:varchar(300);not null;index"`
	Slug        string    `json:"slug"         gorm:"type:varchar(200);not null;index"`
	Material    string    `json:"material"     gorm:"type:varchar(100)"`
	CategoryID  string    `json:"category_id"  gorm:"type:varchar(36)"`
	PhotoURL    string    `json:"photo_url"    gorm:"type:varchar(500)"`
	ImageTitle  string    `json:"image_title"  gorm:"type:varchar(150)"`
	Description string    `json:"description"  gorm:"type:text"`
	Price       float64   `json:"price"        gorm:"not null"`
	Balance     int       `json:"balance"      gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for CatalogItem.
func (CatalogItem) TableName() string { return "catalog_items" }

// DefaultVariantName is the variant label used when a generation request does
// not name one.
const DefaultVariantName = "primary variant"

// UserGeneration is one user's AI-authored content variant for one catalog
// item. The tuple (UserID, CatalogItemID, VariantName) is the upsert key:
// generating again under the same variant name overwrites the AI fields of
// the existing row instead of creating a duplicate. Different variant names
// for the same (user, item) pair coexist as separate rows.
type UserGeneration struct {
	ID            uint      `json:"id"              gorm:"primaryKey"`
	UserID        uint      `json:"user_id"         gorm:"not null;index;uniqueIndex:ux_generation_user_item_variant,priority:1"`
	CatalogItemID uint      `json:"catalog_item_id" gorm:"not null;index;uniqueIndex:ux_generation_user_item_variant,priority:2"`
	VariantName   string    `json:"variant_name"    gorm:"type:varchar(100);not null;default:'primary variant';uniqueIndex:ux_generation_user_item_variant,priority:3"`
	Description   string    `json:"ai_description"  gorm:"type:text"`
	Keywords      string    `json:"ai_keywords"     gorm:"type:text"`
	PromptVersion string    `json:"prompt_version"  gorm:"type:varchar(50)"`
	ExportStatus  string    `json:"export_status"   gorm:"type:varchar(20);not null;default:'not_exported'"`
	ExportCount   int       `json:"export_count"    gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// User is the owning principal. Generations are cascade-deleted when
	// their user is removed.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// CatalogItem is the referenced catalog row. Generations are
	// cascade-deleted when the item is removed.
	CatalogItem CatalogItem `json:"-" gorm:"foreignKey:CatalogItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserGeneration.
func (UserGeneration) TableName() string { return "user_generations" }

// LogEntry is an append-only audit record written by every mutating
// operation. Entries are never updated; the application only inserts and
// reads them (newest first). UserID is nullable and survives user deletion
// as SET NULL so the trail outlives its actors.
//
// ItemID may hold either a catalog external id or an internal row id,
// depending on the action that produced the entry.
type LogEntry struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	UserID    *uint     `json:"user_id"   gorm:"index"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	Action    string    `json:"action"    gorm:"type:varchar(50);not null"`
	ItemID    string    `json:"item_id"   gorm:"type:varchar(64)"`
	Message   string    `json:"message"   gorm:"type:text"`
	Status    string    `json:"status"    gorm:"type:varchar(20)"`
	CreatedAt time.Time `json:"created_at"`

	// User stays nullable: audit rows must outlive deleted accounts.
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for LogEntry.
func (LogEntry) TableName() string { return "log_entries" }
