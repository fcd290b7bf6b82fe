package services

import (
	"time"

	"finsav/internal/models"
	"finsav/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CategoryInput carries the fields accepted when adding a category to a budget.
type CategoryInput struct {
	Name           string
	Limit          float64
	Color          string
	Group          models.CategoryGroup
	AlertThreshold *float64
}

// CategoryUpdate is the allow-listed set of mutable category fields.
// Nil fields are left unchanged.
type CategoryUpdate struct {
	Name           *string
	Limit          *float64
	Color          *string
	Group          *models.CategoryGroup
	AlertThreshold *float64
}

// BudgetUpdate is the allow-listed set of mutable budget fields.
// Nil fields are left unchanged. EndDate is never accepted directly:
// it is re-derived whenever Period or StartDate change.
type BudgetUpdate struct {
	Name             *string
	TotalBudget      *float64
	Period           *models.BudgetPeriod
	StartDate        *time.Time
	Notes            *string
	PreviousBudgetID *string
	ThresholdAlerts  *bool
}

// CategoryProgress is the derived per-category slice of a budget's progress.
type CategoryProgress struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Limit      float64              `json:"limit"`
	Spent      float64              `json:"spent"`
	Remaining  float64              `json:"remaining"`
	Percentage float64              `json:"percentage"`
	Color      string               `json:"color"`
	Group      models.CategoryGroup `json:"group"`
}

// BudgetProgress is the derived read-model for a budget: totals plus a
// per-category breakdown. Percentages are capped at 100 even though
// remaining amounts may go negative.
type BudgetProgress struct {
	TotalBudget    float64            `json:"total_budget"`
	TotalSpent     float64            `json:"total_spent"`
	TotalRemaining float64            `json:"total_remaining"`
	Percentage     float64            `json:"percentage"`
	Categories     []CategoryProgress `json:"categories"`
}

// ThresholdAlert notifies that a category's spend ratio crossed its
// configured alert threshold.
type ThresholdAlert struct {
	Category   string  `json:"category"`
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
}

// SyncResult is the outcome of re-deriving a budget's spending from
// transactions: the rewritten budget plus any threshold alerts.
type SyncResult struct {
	Budget *models.Budget   `json:"budget"`
	Alerts []ThresholdAlert `json:"alerts"`
}

// BudgetSummary is one side of a budget comparison.
type BudgetSummary struct {
	Name           string              `json:"name"`
	Period         models.BudgetPeriod `json:"period"`
	TotalBudget    float64             `json:"total_budget"`
	TotalSpent     float64             `json:"total_spent"`
	TotalRemaining float64             `json:"total_remaining"`
	Percentage     float64             `json:"percentage"`
}

// BudgetDifference holds second-minus-first deltas for the numeric
// comparison fields.
type BudgetDifference struct {
	TotalBudget    float64 `json:"total_budget"`
	TotalSpent     float64 `json:"total_spent"`
	TotalRemaining float64 `json:"total_remaining"`
	Percentage     float64 `json:"percentage"`
}

// CategorySide holds one budget's numbers for a compared category.
type CategorySide struct {
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// CategoryDifference holds second-minus-first deltas for a compared
// category; a side missing the category contributes zeroes.
type CategoryDifference struct {
	Limit      float64 `json:"limit"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

// CategoryComparison compares a single category name across two budgets.
// Budget1/Budget2 are nil when the corresponding budget lacks the category.
type CategoryComparison struct {
	Name       string             `json:"name"`
	Budget1    *CategorySide      `json:"budget1"`
	Budget2    *CategorySide      `json:"budget2"`
	Difference CategoryDifference `json:"difference"`
}

// BudgetComparison is the full structural diff between two budgets.
type BudgetComparison struct {
	Budget1    BudgetSummary        `json:"budget1"`
	Budget2    BudgetSummary        `json:"budget2"`
	Difference BudgetDifference     `json:"difference"`
	Categories []CategoryComparison `json:"categories"`
}

// InsightType tags the severity kind of a generated insight.
type InsightType string

const (
	InsightWarning    InsightType = "warning"
	InsightPositive   InsightType = "positive"
	InsightInfo       InsightType = "info"
	InsightSuggestion InsightType = "suggestion"
)

// FlaggedTransaction is an expense flagged by the spending-spike rule.
type FlaggedTransaction struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// Insight is a generated, human-readable observation about budget health.
type Insight struct {
	Type         InsightType          `json:"type"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Categories   []CategoryProgress   `json:"categories,omitempty"`
	Transactions []FlaggedTransaction `json:"transactions,omitempty"`
}

// BudgetInsights bundles a budget summary with its generated insights.
type BudgetInsights struct {
	Budget struct {
		Name           string              `json:"name"`
		Period         models.BudgetPeriod `json:"period"`
		StartDate      time.Time           `json:"start_date"`
		EndDate        time.Time           `json:"end_date"`
		TotalBudget    float64             `json:"total_budget"`
		TotalSpent     float64             `json:"total_spent"`
		TotalRemaining float64             `json:"total_remaining"`
		Percentage     float64             `json:"percentage"`
	} `json:"budget"`
	Insights []Insight `json:"insights"`
}

// BudgetServicer defines the contract for budget-related business logic,
// including the derived progress, comparison, and insight computations.
type BudgetServicer interface {
	CreateBudget(userID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time, categories []CategoryInput) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error

	AddCategory(userID, budgetID string, input CategoryInput) (*models.Budget, error)
	UpdateCategory(userID, budgetID, categoryID string, update CategoryUpdate) (*models.Budget, error)
	DeleteCategory(userID, budgetID, categoryID string) (*models.Budget, error)
	TrackSpending(userID, budgetID, categoryID string, amount float64) (*models.Budget, error)

	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
	SyncFromTransactions(userID, budgetID string) (*SyncResult, error)
	CompareBudgets(userID, budgetID1, budgetID2 string) (*BudgetComparison, error)
	GetBudgetInsights(userID, budgetID string) (*BudgetInsights, error)
}

// TemplateCategoryInput carries one category of a template definition.
type TemplateCategoryInput struct {
	Name          string
	Percentage    float64
	Group         models.CategoryGroup
	Color         string
	Subcategories []TemplateSubcategoryInput
}

// TemplateSubcategoryInput carries one subcategory of a template
// category; its percentage is relative to the parent's allocation.
type TemplateSubcategoryInput struct {
	Name       string
	Percentage float64
	Color      string
}

// TemplateUpdate is the allow-listed set of mutable template fields.
// A nil Categories slice leaves the category list unchanged.
type TemplateUpdate struct {
	Name        *string
	Description *string
	Categories  []TemplateCategoryInput
}

// TemplateServicer defines the contract for budget template logic.
type TemplateServicer interface {
	EnsureSystemTemplates() error
	GetTemplates(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.BudgetTemplate], error)
	GetTemplateByID(userID, templateID string) (*models.BudgetTemplate, error)
	CreateTemplate(userID, name, description string, categories []TemplateCategoryInput) (*models.BudgetTemplate, error)
	UpdateTemplate(userID, templateID string, update TemplateUpdate) (*models.BudgetTemplate, error)
	DeleteTemplate(userID, templateID string) error
	CreateBudgetFromTemplate(userID, templateID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time) (*models.Budget, error)
	SaveBudgetAsTemplate(userID, budgetID, name, description string) (*models.BudgetTemplate, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	MinAmount *float64
	MaxAmount *float64
	Ascending bool
}

// TransactionUpdate is the allow-listed set of mutable transaction fields.
type TransactionUpdate struct {
	Amount      *float64
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, transactionType models.TransactionType, amount float64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// IncomeExpensePoint is one bucket of the income-vs-expense report.
type IncomeExpensePoint struct {
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

// IncomeExpenseReport aggregates income and expenses per time bucket.
type IncomeExpenseReport struct {
	StartDate  time.Time            `json:"start_date"`
	EndDate    time.Time            `json:"end_date"`
	PeriodType string               `json:"period_type"`
	Data       []IncomeExpensePoint `json:"data"`
}

// CategoryAmount is one row of the category spending report.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// CategoryReport breaks down spending by matched category name, with a
// synthetic "Other" bucket for unmatched expenses.
type CategoryReport struct {
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	TotalSpent float64          `json:"total_spent"`
	Data       []CategoryAmount `json:"data"`
}

// MonthlySavings is one month of the yearly savings report.
type MonthlySavings struct {
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Income    float64 `json:"income"`
	Expense   float64 `json:"expense"`
	Savings   float64 `json:"savings"`
}

// SavingsReport summarizes income, expense, and savings per month of a year.
type SavingsReport struct {
	Year                  int              `json:"year"`
	TotalIncome           float64          `json:"total_income"`
	TotalExpense          float64          `json:"total_expense"`
	TotalSavings          float64          `json:"total_savings"`
	AverageMonthlySavings float64          `json:"average_monthly_savings"`
	Data                  []MonthlySavings `json:"data"`
}

// TrendDirection labels the movement of a series between its last two points.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendPoint is one month of the transaction trends report.
type TrendPoint struct {
	Month        string  `json:"month"`
	Income       float64 `json:"income"`
	Expense      float64 `json:"expense"`
	Transactions int     `json:"transactions"`
}

// TrendSummary holds the per-series trend indicators.
type TrendSummary struct {
	Income  TrendDirection `json:"income"`
	Expense TrendDirection `json:"expense"`
	Savings TrendDirection `json:"savings"`
}

// TrendsReport shows per-month totals and coarse direction indicators
// over the last N months.
type TrendsReport struct {
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Months    int          `json:"months"`
	Trends    TrendSummary `json:"trends"`
	Data      []TrendPoint `json:"data"`
}

// ReportServicer defines the contract for aggregate reporting.
type ReportServicer interface {
	IncomeExpenseReport(userID string, startDate, endDate *time.Time, periodType string) (*IncomeExpenseReport, error)
	CategoryReport(userID string, startDate, endDate *time.Time) (*CategoryReport, error)
	SavingsReport(userID string, year int) (*SavingsReport, error)
	TransactionTrends(userID string, months int) (*TrendsReport, error)
	ExportTransactionsCSV(userID string, startDate, endDate *time.Time) (string, []byte, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
