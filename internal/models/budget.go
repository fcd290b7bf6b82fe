package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// EndDate returns the period's end date for the given start date:
// start advanced by exactly one period unit.
func (p BudgetPeriod) EndDate(start time.Time) time.Time {
	switch p {
	case BudgetPeriodWeekly:
		return start.AddDate(0, 0, 7)
	case BudgetPeriodMonthly:
		return start.AddDate(0, 1, 0)
	case BudgetPeriodYearly:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// CategoryGroup classifies a budget category for reporting and insights
type CategoryGroup string

const (
	GroupEssential    CategoryGroup = "Essential"
	GroupNonEssential CategoryGroup = "Non-essential"
	GroupSavings      CategoryGroup = "Savings"
	GroupIncome       CategoryGroup = "Income"
	GroupOther        CategoryGroup = "Other"
)

// DefaultAlertThreshold is the spend percentage at which a category
// alert fires unless the category overrides it.
const DefaultAlertThreshold = 80.0

// NotificationSettings holds per-budget notification preferences
type NotificationSettings struct {
	Enabled            bool `gorm:"default:true" json:"enabled"`
	EmailNotifications bool `gorm:"default:false" json:"email_notifications"`
	WeeklyDigest       bool `gorm:"default:false" json:"weekly_digest"`
	ThresholdAlerts    bool `gorm:"default:true" json:"threshold_alerts"`
}

// Budget represents a user's spending plan for one period
type Budget struct {
	Base
	UserID           string               `gorm:"type:uuid;not null;index" json:"user_id"`
	Name             string               `gorm:"not null" json:"name"`
	TotalBudget      float64              `gorm:"not null" json:"total_budget"`
	Period           BudgetPeriod         `gorm:"not null;default:monthly" json:"period"`
	StartDate        time.Time            `gorm:"not null" json:"start_date"`
	EndDate          time.Time            `json:"end_date"`
	TemplateType     TemplateType         `gorm:"default:custom" json:"template_type"`
	PreviousBudgetID *string              `gorm:"type:uuid" json:"previous_budget_id,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	Notifications    NotificationSettings `gorm:"embedded;embeddedPrefix:notif_" json:"notifications"`

	// Categories holds the top-level category entries; subcategories
	// hang off their parent via ParentID.
	Categories     []BudgetCategory `gorm:"foreignKey:BudgetID" json:"categories"`
	PreviousBudget *Budget          `gorm:"foreignKey:PreviousBudgetID" json:"previous_budget,omitempty"`
}

// Category returns the category or subcategory with the given ID, or
// nil if the budget does not contain it.
func (b *Budget) Category(id string) *BudgetCategory {
	for i := range b.Categories {
		if b.Categories[i].ID == id {
			return &b.Categories[i]
		}
		for j := range b.Categories[i].Subcategories {
			if b.Categories[i].Subcategories[j].ID == id {
				return &b.Categories[i].Subcategories[j]
			}
		}
	}
	return nil
}

// BudgetCategory is a named slice of a budget's total limit with its
// own spend tracking. It is owned by exactly one budget.
type BudgetCategory struct {
	Base
	BudgetID       string        `gorm:"type:uuid;not null;index" json:"budget_id"`
	Name           string        `gorm:"not null" json:"name"`
	Limit          float64       `gorm:"not null" json:"limit"`
	Spent          float64       `gorm:"default:0" json:"spent"`
	Color          string        `gorm:"default:#3f51b5" json:"color"`
	Group          CategoryGroup `gorm:"default:Other" json:"group"`
	AlertThreshold float64       `gorm:"default:80" json:"alert_threshold"`
	IsSubcategory  bool          `gorm:"default:false" json:"is_subcategory"`
	ParentID       *string       `gorm:"type:uuid" json:"parent_id,omitempty"`

	Subcategories []BudgetCategory `gorm:"foreignKey:ParentID" json:"subcategories,omitempty"`
}
