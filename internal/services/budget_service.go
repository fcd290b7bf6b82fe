package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
	"finsav/internal/pagination"
	"finsav/internal/uuid"
)

type budgetService struct {
	db *gorm.DB
	// now is injectable so time-sensitive insight rules are testable.
	now func() time.Time
}

// NewBudgetService creates a new budget service backed by the given database.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db, now: time.Now}
}

// loadBudget fetches a budget owned by the user with its category tree.
func (s *budgetService) loadBudget(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.
		Preload("Categories", "parent_id IS NULL").
		Preload("Categories.Subcategories").
		Where("id = ? AND user_id = ?", budgetID, userID).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrBudgetNotFound, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// persistCategories flattens a category tree, assigns IDs and ownership,
// and inserts all rows. Subcategory rows carry both the budget ID and
// their parent's ID.
func persistCategories(tx *gorm.DB, budgetID string, categories []models.BudgetCategory) error {
	var flat []models.BudgetCategory
	for i := range categories {
		parent := categories[i]
		subs := parent.Subcategories
		parent.Subcategories = nil
		parent.BudgetID = budgetID
		if parent.ID == "" {
			parent.ID = uuid.New()
		}
		flat = append(flat, parent)

		for j := range subs {
			sub := subs[j]
			sub.BudgetID = budgetID
			sub.ParentID = &parent.ID
			sub.IsSubcategory = true
			if sub.ID == "" {
				sub.ID = uuid.New()
			}
			flat = append(flat, sub)
		}
	}
	if len(flat) == 0 {
		return nil
	}
	return tx.Create(&flat).Error
}

func validateCategoryInputs(inputs []CategoryInput) error {
	seen := make(map[string]bool)
	for _, in := range inputs {
		if in.Limit < 0 {
			return apperrors.ErrNegativeLimit
		}
		if seen[in.Name] {
			return apperrors.ErrDuplicateCategory
		}
		seen[in.Name] = true
	}
	return nil
}

func categoryFromInput(in CategoryInput) models.BudgetCategory {
	threshold := models.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}
	color := in.Color
	if color == "" {
		color = "#3f51b5"
	}
	group := in.Group
	if group == "" {
		group = models.GroupOther
	}
	return models.BudgetCategory{
		Name:           in.Name,
		Limit:          in.Limit,
		Color:          color,
		Group:          group,
		AlertThreshold: threshold,
	}
}

// CreateBudget creates a budget with its categories. The end date is
// always derived from the period and start date, never supplied.
func (s *budgetService) CreateBudget(userID, name string, totalBudget float64, period models.BudgetPeriod, startDate time.Time, categories []CategoryInput) (*models.Budget, error) {
	if totalBudget < 0 {
		return nil, apperrors.ErrNegativeLimit
	}
	if err := validateCategoryInputs(categories); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:      userID,
		Name:        name,
		TotalBudget: totalBudget,
		Period:      period,
		StartDate:   startDate,
		EndDate:     period.EndDate(startDate),
		Notifications: models.NotificationSettings{
			Enabled:         true,
			ThresholdAlerts: true,
		},
	}
	budget.ID = uuid.New()

	cats := make([]models.BudgetCategory, 0, len(categories))
	for _, in := range categories {
		cats = append(cats, categoryFromInput(in))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Create(budget).Error; err != nil {
			return err
		}
		return persistCategories(tx, budget.ID, cats)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.loadBudget(userID, budget.ID)
}

// GetUserBudgets returns a page of the user's budgets, newest period first.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	query := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if period != nil {
		query = query.Where("period = ?", *period)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	err := query.
		Preload("Categories", "parent_id IS NULL").
		Preload("Categories.Subcategories").
		Order("start_date DESC").
		Scopes(pagination.Paginate(page)).
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(budgets, page.Page, page.PageSize, total)
	return &resp, nil
}

func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	return s.loadBudget(userID, budgetID)
}

// UpdateBudget applies the allow-listed fields. Changing the period or
// start date re-derives the end date so the invariant holds.
func (s *budgetService) UpdateBudget(userID, budgetID string, update BudgetUpdate) (*models.Budget, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	if update.TotalBudget != nil && *update.TotalBudget < 0 {
		return nil, apperrors.ErrNegativeLimit
	}

	if update.Name != nil {
		budget.Name = *update.Name
	}
	if update.TotalBudget != nil {
		budget.TotalBudget = *update.TotalBudget
	}
	if update.Period != nil {
		budget.Period = *update.Period
	}
	if update.StartDate != nil {
		budget.StartDate = *update.StartDate
	}
	if update.Period != nil || update.StartDate != nil {
		budget.EndDate = budget.Period.EndDate(budget.StartDate)
	}
	if update.Notes != nil {
		budget.Notes = *update.Notes
	}
	if update.PreviousBudgetID != nil {
		if *update.PreviousBudgetID == "" {
			budget.PreviousBudgetID = nil
		} else {
			budget.PreviousBudgetID = update.PreviousBudgetID
		}
	}
	if update.ThresholdAlerts != nil {
		budget.Notifications.ThresholdAlerts = *update.ThresholdAlerts
	}

	if err := s.db.Omit("Categories", "PreviousBudget").Save(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadBudget(userID, budgetID)
}

func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budget.ID).Delete(&models.BudgetCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(budget).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AddCategory appends a category to the budget. Names must be unique
// within the budget, including subcategory names.
func (s *budgetService) AddCategory(userID, budgetID string, input CategoryInput) (*models.Budget, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	if input.Limit < 0 {
		return nil, apperrors.ErrNegativeLimit
	}
	for i := range budget.Categories {
		if budget.Categories[i].Name == input.Name {
			return nil, apperrors.ErrDuplicateCategory
		}
		for j := range budget.Categories[i].Subcategories {
			if budget.Categories[i].Subcategories[j].Name == input.Name {
				return nil, apperrors.ErrDuplicateCategory
			}
		}
	}

	category := categoryFromInput(input)
	category.BudgetID = budget.ID
	if err := s.db.Create(&category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadBudget(userID, budgetID)
}

func (s *budgetService) UpdateCategory(userID, budgetID, categoryID string, update CategoryUpdate) (*models.Budget, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	category := budget.Category(categoryID)
	if category == nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	if update.Limit != nil && *update.Limit < 0 {
		return nil, apperrors.ErrNegativeLimit
	}
	if update.Name != nil && *update.Name != category.Name {
		for i := range budget.Categories {
			if budget.Categories[i].Name == *update.Name {
				return nil, apperrors.ErrDuplicateCategory
			}
			for j := range budget.Categories[i].Subcategories {
				if budget.Categories[i].Subcategories[j].Name == *update.Name {
					return nil, apperrors.ErrDuplicateCategory
				}
			}
		}
		category.Name = *update.Name
	}
	if update.Limit != nil {
		category.Limit = *update.Limit
	}
	if update.Color != nil {
		category.Color = *update.Color
	}
	if update.Group != nil {
		category.Group = *update.Group
	}
	if update.AlertThreshold != nil {
		category.AlertThreshold = *update.AlertThreshold
	}

	if err := s.db.Omit("Subcategories").Save(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadBudget(userID, budgetID)
}

// DeleteCategory removes a category and, for top-level categories, its
// subcategories as well.
func (s *budgetService) DeleteCategory(userID, budgetID, categoryID string) (*models.Budget, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.Category(categoryID) == nil {
		return nil, apperrors.ErrCategoryNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", categoryID).Delete(&models.BudgetCategory{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", categoryID).Delete(&models.BudgetCategory{}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadBudget(userID, budgetID)
}

// TrackSpending adds a manually recorded amount to a category's spent
// total. Spent only accumulates here; a sync recomputes it wholesale.
func (s *budgetService) TrackSpending(userID, budgetID, categoryID string, amount float64) (*models.Budget, error) {
	if amount < 0 {
		return nil, apperrors.ErrNegativeLimit
	}
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	category := budget.Category(categoryID)
	if category == nil {
		return nil, apperrors.ErrCategoryNotFound
	}

	category.Spent += amount
	if err := s.db.Model(&models.BudgetCategory{}).Where("id = ?", category.ID).Update("spent", category.Spent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadBudget(userID, budgetID)
}

func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	return computeProgress(budget), nil
}

// SyncFromTransactions recomputes all category spent amounts from the
// user's expense transactions within the budget period, persists them,
// and reports any categories that crossed their alert thresholds.
func (s *budgetService) SyncFromTransactions(userID, budgetID string) (*SyncResult, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	err = s.db.
		Where("user_id = ? AND type = ? AND date >= ? AND date <= ?",
			userID, models.TransactionTypeExpense, budget.StartDate, budget.EndDate).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	syncCategories(budget, transactions)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for i := range budget.Categories {
			cat := &budget.Categories[i]
			if err := tx.Model(&models.BudgetCategory{}).Where("id = ?", cat.ID).Update("spent", cat.Spent).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &SyncResult{
		Budget: budget,
		Alerts: evaluateAlerts(budget),
	}, nil
}

func (s *budgetService) CompareBudgets(userID, budgetID1, budgetID2 string) (*BudgetComparison, error) {
	b1, err := s.loadBudget(userID, budgetID1)
	if err != nil {
		return nil, err
	}
	b2, err := s.loadBudget(userID, budgetID2)
	if err != nil {
		return nil, err
	}
	return compareBudgets(b1, b2), nil
}

// GetBudgetInsights evaluates the insight rules against the budget's
// current state, this period's transactions, and the linked previous
// budget when one exists.
func (s *budgetService) GetBudgetInsights(userID, budgetID string) (*BudgetInsights, error) {
	budget, err := s.loadBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	err = s.db.
		Where("user_id = ? AND type = ? AND date >= ? AND date <= ?",
			userID, models.TransactionTypeExpense, budget.StartDate, budget.EndDate).
		Order("date ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var previous *models.Budget
	if budget.PreviousBudgetID != nil {
		prev, err := s.loadBudget(userID, *budget.PreviousBudgetID)
		if err == nil {
			previous = prev
		}
		// A dangling previous-budget link just skips the rate comparison.
	}

	progress := computeProgress(budget)

	result := &BudgetInsights{
		Insights: generateInsights(budget, progress, transactions, previous, s.now()),
	}
	result.Budget.Name = budget.Name
	result.Budget.Period = budget.Period
	result.Budget.StartDate = budget.StartDate
	result.Budget.EndDate = budget.EndDate
	result.Budget.TotalBudget = progress.TotalBudget
	result.Budget.TotalSpent = progress.TotalSpent
	result.Budget.TotalRemaining = progress.TotalRemaining
	result.Budget.Percentage = progress.Percentage
	return result, nil
}
