package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestBaseModel_GeneratesULID(t *testing.T) {
	db := openTestDB(t)

	user := User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	assert.Len(t, user.ID, 26)

	var found User
	require.NoError(t, FindByID(db, user.ID, &found))
	assert.Equal(t, "alice", found.Username)
}

func TestUser_Relationships(t *testing.T) {
	db := openTestDB(t)

	user := User{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: "x",
		Student:      &Student{ShuID: "111111111", DOB: time.Date(2001, 3, 7, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, db.Create(&user).Error)

	var found User
	require.NoError(t, FindByIDWithPreload(db, user.ID, &found, "Student", "Parent"))
	require.NotNil(t, found.Student)
	assert.Equal(t, "111111111", found.Student.ShuID)
	assert.Nil(t, found.Parent)
}

func TestUser_UniqueUsername(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}).Error)
	assert.Error(t, db.Create(&User{Username: "alice", Email: "b@example.com", PasswordHash: "x"}).Error)
}

func TestUser_Suspended(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Minute)

	assert.False(t, (&User{}).Suspended(now))
	assert.True(t, (&User{SuspendedUntil: &until}).Suspended(now))
	assert.False(t, (&User{SuspendedUntil: &until}).Suspended(until.Add(time.Second)))
}
