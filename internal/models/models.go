package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is a portal account. A user is a student, a parent, or neither
// (the bootstrap admin).
type User struct {
	BaseModel
	Username       string     `json:"username" gorm:"unique;not null"`
	Email          string     `json:"email" gorm:"unique;not null"`
	PasswordHash   string     `json:"-" gorm:"not null"`
	Name           string     `json:"name"`
	IsAdmin        bool       `json:"is_admin" gorm:"not null;default:false"`
	SuspendedUntil *time.Time `json:"suspended_until"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Student *Student `json:"student,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Parent  *Parent  `json:"parent,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Suspended reports whether logins are blocked at now
func (u *User) Suspended(now time.Time) bool {
	return u.SuspendedUntil != nil && !u.SuspendedUntil.Before(now)
}

// Student holds the student-only part of an account
type Student struct {
	BaseModel
	UserID string    `json:"user_id" gorm:"unique;not null"`
	ShuID  string    `json:"shu_id" gorm:"unique;not null"`
	DOB    time.Time `json:"dob" gorm:"not null"`
}

// Parent marks an account as a parent
type Parent struct {
	BaseModel
	UserID string `json:"user_id" gorm:"unique;not null"`
}

// LoginAttempt records one password login, successful or not
type LoginAttempt struct {
	BaseModel
	At        time.Time `json:"at" gorm:"not null;index"`
	Success   bool      `json:"success" gorm:"not null"`
	FromWhere string    `json:"from_where"`
	Username  string    `json:"username" gorm:"index"`
	Info      string    `json:"info"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Student{}, &Parent{}, &LoginAttempt{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
