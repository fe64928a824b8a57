package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gavelpoint/auctionhouse-backend/pkg/enums"
)

// User mirrors the identity entity owned by the external account service.
// This core reads users for reference checks and never mutates them.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username  string         `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	FirstName string         `gorm:"column:first_name;type:text;not null"`
	LastName  string         `gorm:"column:last_name;type:text;not null"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'member'"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
