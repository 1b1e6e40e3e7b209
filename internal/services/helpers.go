package services

import (
	"strings"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/storage"
)

// ProfilePicURL resolves the picture shown for a user.
func ProfilePicURL(user *models.User) string {
	switch {
	case user.HasUploadedPicture():
		return storage.PublicURL(user.ProfilePic)
	case user.ProfilePic != "":
		return user.ProfilePic
	default:
		return models.DefaultAvatarURL(user.Name, len(user.ID))
	}
}

func toProfile(user *models.User) models.UserProfile {
	return models.UserProfile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		ProfilePic:   ProfilePicURL(user),
		OverallStats: user.Stats,
		CreatedAt:    user.CreatedAt,
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
