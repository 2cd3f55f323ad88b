package repository

import (
	"context"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"golang.org/x/crypto/bcrypt"
)

func CreateUser(email, password, firstName, lastName string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: firstName,
		LastName:  lastName,
	}
	result := database.DB.Create(user)
	return user, result.Error
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := database.DB.WithContext(ctx).First(&user, "email = ?", email)
	return &user, result.Error
}

func GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := database.DB.WithContext(ctx).First(&user, id)
	return &user, result.Error
}

// UpdateStreak writes the streak fields computed by the streak service.
func UpdateStreak(ctx context.Context, userID uint, current, longest int, completedAt time.Time) error {
	return database.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"current_streak":    current,
		"longest_streak":    longest,
		"last_completed_at": completedAt,
	}).Error
}

// ExpireLapsedStreaks zeroes the streak of every user whose last completed
// session is older than the given cutoff. Run by the scheduler at day
// rollover.
func ExpireLapsedStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	result := database.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("current_streak > 0 AND (last_completed_at IS NULL OR last_completed_at < ?)", cutoff).
		Update("current_streak", 0)
	return result.RowsAffected, result.Error
}
