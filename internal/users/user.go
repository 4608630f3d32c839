package users

import (
	"strings"
	"time"
)

// User is the internal account that external identities resolve to.
type User struct {
	ID            string    `gorm:"column:id;primaryKey;size:36"`
	Email         string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;size:255"`
	GoogleSubject *string   `gorm:"column:google_id;size:255;uniqueIndex"`
	AppleSubject  *string   `gorm:"column:apple_id;size:255;uniqueIndex"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName exposes the table backing users.
func (User) TableName() string {
	return "users"
}

// DisplayName returns the stored name, or the local part of the email when the name is empty.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return EmailLocalPart(u.Email)
}

// EmailLocalPart returns the text before the first "@".
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Profile carries the identity data presented at login. Subjects are optional.
type Profile struct {
	Email         string
	Name          string
	GoogleSubject string
	AppleSubject  string
}

func (p Profile) normalized() Profile {
	return Profile{
		Email:         normalizeEmail(p.Email),
		Name:          normalize(p.Name),
		GoogleSubject: normalize(p.GoogleSubject),
		AppleSubject:  normalize(p.AppleSubject),
	}
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func stringPointer(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
