package models

import (
	"fmt"
	"strings"
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// DefaultAvatarBase is the avatar generator used when a user has no uploaded picture.
const DefaultAvatarBase = "https://ui-avatars.com/api/"

var avatarColors = []string{"FFAD08", "EDD382", "FC7A57", "41BBD9", "5C6784"}

type User struct {
	ID           string   `json:"id" gorm:"primaryKey;size:64"`
	Name         string   `json:"name" gorm:"not null;size:50"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"size:20;not null;default:student"`

	// ProfilePic is either an absolute avatar URL or a blob key of an uploaded image.
	ProfilePic string `json:"-" gorm:"size:500"`

	Stats OverallStats `json:"overallStats" gorm:"embedded;embeddedPrefix:stats_"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// HasUploadedPicture reports whether ProfilePic refers to stored content.
func (u *User) HasUploadedPicture() bool {
	return u.ProfilePic != "" && !strings.HasPrefix(u.ProfilePic, "https://")
}

// DefaultAvatarURL builds the generated avatar for a name. seed picks the color.
func DefaultAvatarURL(name string, seed int) string {
	initial := "U"
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		initial = strings.ToUpper(string([]rune(trimmed)[0]))
	}
	if seed < 0 {
		seed = -seed
	}
	color := avatarColors[seed%len(avatarColors)]
	return fmt.Sprintf("%s?name=%s&background=%s&color=fff&size=128", DefaultAvatarBase, initial, color)
}

// OverallStats summarizes a user's test history. Scores are percentages.
type OverallStats struct {
	TotalTestsTaken int     `json:"totalTestsTaken" gorm:"not null;default:0;index"`
	AverageScore    float64 `json:"averageScore" gorm:"not null;default:0"`
	BestScore       float64 `json:"bestScore" gorm:"not null;default:0"`
}
