package users

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// User represents a user account. Users are process-wide and may hold
// memberships in multiple orgs at once.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var nameCaser = cases.Title(language.English)

// DefaultNameFromEmail derives a display name from the email local-part.
// Used when an invite carries no explicit name.
func DefaultNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	local = strings.TrimSpace(local)
	if local == "" {
		return email
	}
	return nameCaser.String(local)
}

// NormalizeEmail lowercases and trims an email address. Emails are
// unique case-insensitively; the stored form is always lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
