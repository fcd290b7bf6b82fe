package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finsav/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates a monthly budget starting on the given date
// with no categories.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, totalBudget float64, startDate time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		TotalBudget: totalBudget,
		Period:      models.BudgetPeriodMonthly,
		StartDate:   startDate,
		EndDate:     models.BudgetPeriodMonthly.EndDate(startDate),
		Notifications: models.NotificationSettings{
			Enabled:         true,
			ThresholdAlerts: true,
		},
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestCategory attaches a category to a budget.
func CreateTestCategory(t *testing.T, db *gorm.DB, budgetID, name string, limit, spent float64) *models.BudgetCategory {
	t.Helper()

	category := &models.BudgetCategory{
		BudgetID:       budgetID,
		Name:           name,
		Limit:          limit,
		Spent:          spent,
		Color:          "#3f51b5",
		Group:          models.GroupOther,
		AlertThreshold: models.DefaultAlertThreshold,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction records a transaction with the sign convention
// already applied to the amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount float64, description string, date time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestTemplate creates a custom template owned by the user with
// the given percentage allocations.
func CreateTestTemplate(t *testing.T, db *gorm.DB, userID string, percentages map[string]float64) *models.BudgetTemplate {
	t.Helper()

	template := &models.BudgetTemplate{
		Name:         fmt.Sprintf("Test Template %d", nextID()),
		Kind:         models.TemplateKindCustom,
		TemplateType: models.TemplateTypeCustom,
		UserID:       &userID,
	}
	if err := db.Create(template).Error; err != nil {
		t.Fatalf("failed to create test template: %v", err)
	}
	for name, pct := range percentages {
		category := &models.TemplateCategory{
			TemplateID: template.ID,
			Name:       name,
			Percentage: pct,
			Group:      models.GroupOther,
			Color:      "#3f51b5",
		}
		if err := db.Create(category).Error; err != nil {
			t.Fatalf("failed to create test template category: %v", err)
		}
	}
	return template
}
