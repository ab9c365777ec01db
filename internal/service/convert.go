package service

import (
	"github.com/mmynk/owedup/internal/calculator"
	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/pkg/api"
)

// ExpenseTopic is the feed key for changes to a user's expenses.
func ExpenseTopic(userID string) string {
	return "expenses:" + userID
}

// SessionTopic is the feed key for changes to one session.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

func toAPIUser(user *models.User) *api.User {
	return &api.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:        e.ID,
		Name:      e.Name,
		Amount:    e.Amount,
		Type:      e.Type,
		Status:    string(e.Status),
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
	}
}

func toAPISummary(s calculator.Summary) *api.Summary {
	return &api.Summary{
		TotalOwed:  s.TotalOwed,
		TotalOwe:   s.TotalOwe,
		TotalSplit: s.TotalSplit,
		Net:        s.Net(),
		Count:      s.Count,
	}
}
