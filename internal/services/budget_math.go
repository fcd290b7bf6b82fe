package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"finsav/internal/models"
)

// reportOtherBucket is the synthetic category name that collects
// expenses no budget category matches in report aggregations.
const reportOtherBucket = "Other"

// categoryRiskThreshold is the spend ratio above which a category is
// considered at risk in the insight rules.
const categoryRiskThreshold = 80.0

// spendRate returns spent as a percentage of limit, uncapped. A
// non-positive limit yields 0 so empty allocations never read as
// overspent.
func spendRate(spent, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return spent / limit * 100
}

// cappedSpendRate is spendRate clamped to 100 for display surfaces.
func cappedSpendRate(spent, limit float64) float64 {
	return math.Min(100, spendRate(spent, limit))
}

// matchCategoryForSync finds the budget category a transaction belongs
// to: the first category (in budget order) whose name appears as a
// case-insensitive substring of the description. Returns nil when
// nothing matches; sync drops such transactions.
func matchCategoryForSync(description string, categories []models.BudgetCategory) *models.BudgetCategory {
	desc := strings.ToLower(description)
	for i := range categories {
		if strings.Contains(desc, strings.ToLower(categories[i].Name)) {
			return &categories[i]
		}
	}
	return nil
}

// matchCategoryForReport matches a description against a list of
// category names with the same substring rule, but falls back to the
// "Other" bucket instead of dropping unmatched transactions.
func matchCategoryForReport(description string, names []string) string {
	desc := strings.ToLower(description)
	for _, name := range names {
		if strings.Contains(desc, strings.ToLower(name)) {
			return name
		}
	}
	return reportOtherBucket
}

// computeProgress derives the read-model for a budget: per-category
// remaining amounts and spend percentages plus budget-level totals.
// Remaining may go negative on overspend; percentages are capped at 100.
func computeProgress(b *models.Budget) *BudgetProgress {
	progress := &BudgetProgress{
		TotalBudget: b.TotalBudget,
		Categories:  make([]CategoryProgress, 0, len(b.Categories)),
	}

	for i := range b.Categories {
		cat := &b.Categories[i]
		progress.TotalSpent += cat.Spent
		progress.Categories = append(progress.Categories, CategoryProgress{
			ID:         cat.ID,
			Name:       cat.Name,
			Limit:      cat.Limit,
			Spent:      cat.Spent,
			Remaining:  cat.Limit - cat.Spent,
			Percentage: cappedSpendRate(cat.Spent, cat.Limit),
			Color:      cat.Color,
			Group:      cat.Group,
		})
	}

	progress.TotalRemaining = b.TotalBudget - progress.TotalSpent
	progress.Percentage = cappedSpendRate(progress.TotalSpent, b.TotalBudget)
	return progress
}

// syncCategories rewrites every category's spent amount from the given
// transactions. Only expense transactions dated within the budget's
// period (inclusive on both ends) are counted; amounts contribute their
// absolute value to the first matching category. Unmatched expenses are
// dropped. The operation is idempotent: spent is reset before
// accumulation, so re-running over the same transactions yields the
// same totals.
func syncCategories(b *models.Budget, transactions []models.Transaction) {
	for i := range b.Categories {
		b.Categories[i].Spent = 0
	}

	for i := range transactions {
		tx := &transactions[i]
		if tx.Type != models.TransactionTypeExpense {
			continue
		}
		if tx.Date.Before(b.StartDate) || tx.Date.After(b.EndDate) {
			continue
		}
		if cat := matchCategoryForSync(tx.Description, b.Categories); cat != nil {
			cat.Spent += math.Abs(tx.Amount)
		}
	}
}

// evaluateAlerts returns an alert for each category whose spend ratio
// meets or exceeds its alert threshold. No alerts are produced when the
// budget has threshold alerts disabled.
func evaluateAlerts(b *models.Budget) []ThresholdAlert {
	if !b.Notifications.ThresholdAlerts {
		return nil
	}

	var alerts []ThresholdAlert
	for i := range b.Categories {
		cat := &b.Categories[i]
		pct := spendRate(cat.Spent, cat.Limit)
		if pct >= cat.AlertThreshold {
			alerts = append(alerts, ThresholdAlert{
				Category:   cat.Name,
				Limit:      cat.Limit,
				Spent:      cat.Spent,
				Percentage: pct,
				Threshold:  cat.AlertThreshold,
			})
		}
	}
	return alerts
}

// budgetSummary condenses a budget to the figures used in comparisons.
func budgetSummary(b *models.Budget) BudgetSummary {
	p := computeProgress(b)
	return BudgetSummary{
		Name:           b.Name,
		Period:         b.Period,
		TotalBudget:    p.TotalBudget,
		TotalSpent:     p.TotalSpent,
		TotalRemaining: p.TotalRemaining,
		Percentage:     p.Percentage,
	}
}

// compareBudgets builds a structural diff between two budgets. All
// differences are second minus first. Categories are matched by exact
// name; the union keeps the first budget's order followed by categories
// only the second has, and a missing side contributes zeroes to the
// difference.
func compareBudgets(b1, b2 *models.Budget) *BudgetComparison {
	s1 := budgetSummary(b1)
	s2 := budgetSummary(b2)

	cmp := &BudgetComparison{
		Budget1: s1,
		Budget2: s2,
		Difference: BudgetDifference{
			TotalBudget:    s2.TotalBudget - s1.TotalBudget,
			TotalSpent:     s2.TotalSpent - s1.TotalSpent,
			TotalRemaining: s2.TotalRemaining - s1.TotalRemaining,
			Percentage:     s2.Percentage - s1.Percentage,
		},
	}

	side := func(cat *models.BudgetCategory) *CategorySide {
		return &CategorySide{
			Limit:      cat.Limit,
			Spent:      cat.Spent,
			Remaining:  cat.Limit - cat.Spent,
			Percentage: cappedSpendRate(cat.Spent, cat.Limit),
		}
	}
	find := func(cats []models.BudgetCategory, name string) *models.BudgetCategory {
		for i := range cats {
			if cats[i].Name == name {
				return &cats[i]
			}
		}
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for i := range b1.Categories {
		if !seen[b1.Categories[i].Name] {
			seen[b1.Categories[i].Name] = true
			names = append(names, b1.Categories[i].Name)
		}
	}
	for i := range b2.Categories {
		if !seen[b2.Categories[i].Name] {
			seen[b2.Categories[i].Name] = true
			names = append(names, b2.Categories[i].Name)
		}
	}

	for _, name := range names {
		cc := CategoryComparison{Name: name}
		if c := find(b1.Categories, name); c != nil {
			cc.Budget1 = side(c)
		}
		if c := find(b2.Categories, name); c != nil {
			cc.Budget2 = side(c)
		}

		var a, b CategorySide
		if cc.Budget1 != nil {
			a = *cc.Budget1
		}
		if cc.Budget2 != nil {
			b = *cc.Budget2
		}
		cc.Difference = CategoryDifference{
			Limit:      b.Limit - a.Limit,
			Spent:      b.Spent - a.Spent,
			Remaining:  b.Remaining - a.Remaining,
			Percentage: b.Percentage - a.Percentage,
		}
		cmp.Categories = append(cmp.Categories, cc)
	}

	return cmp
}

// formatPct renders a percentage with one decimal place for insight text.
func formatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// generateInsights runs the fixed set of insight rules against a budget
// and its derived progress. Rules always run in the same order so the
// output is deterministic. transactions are this period's expenses used
// for the spending-spike rule; previous may be nil.
func generateInsights(b *models.Budget, progress *BudgetProgress, transactions []models.Transaction, previous *models.Budget, now time.Time) []Insight {
	var insights []Insight

	// Near-depletion and on-track checks are independent of each other.
	if progress.Percentage > 90 {
		insights = append(insights, Insight{
			Type:        InsightWarning,
			Title:       "Budget Almost Depleted",
			Description: fmt.Sprintf("You've used %s%% of your total budget. Consider adjusting your spending for the rest of the period.", formatPct(progress.Percentage)),
		})
	}

	midpoint := b.StartDate.Add(b.EndDate.Sub(b.StartDate) / 2)
	if progress.Percentage < 30 && now.After(midpoint) {
		insights = append(insights, Insight{
			Type:        InsightPositive,
			Title:       "Budget On Track",
			Description: fmt.Sprintf("You've only used %s%% of your budget and you're past the halfway point of the period. You're doing great!", formatPct(progress.Percentage)),
		})
	}

	var atRisk []CategoryProgress
	for _, cp := range progress.Categories {
		if cp.Percentage >= categoryRiskThreshold {
			atRisk = append(atRisk, cp)
		}
	}
	if len(atRisk) > 0 {
		names := make([]string, len(atRisk))
		for i, cp := range atRisk {
			names[i] = cp.Name
		}
		insights = append(insights, Insight{
			Type:        InsightWarning,
			Title:       "Categories Approaching Limits",
			Description: fmt.Sprintf("%d categories are at or above 80%% of their budget: %s.", len(atRisk), strings.Join(names, ", ")),
			Categories:  atRisk,
		})
	}

	insights = append(insights, spendingSpikeInsights(b, transactions)...)

	if previous != nil {
		prevProgress := computeProgress(previous)
		// A previous period with zero spend rate has no meaningful
		// baseline to compare against.
		if prevProgress.Percentage > 0 {
			ratio := progress.Percentage / prevProgress.Percentage
			if progress.Percentage > prevProgress.Percentage*1.2 {
				insights = append(insights, Insight{
					Type:        InsightWarning,
					Title:       "Higher Spending Rate",
					Description: fmt.Sprintf("You're spending at a %s%% higher rate compared to your previous budget period.", formatPct(ratio*100-100)),
				})
			} else if progress.Percentage < prevProgress.Percentage*0.8 {
				insights = append(insights, Insight{
					Type:        InsightPositive,
					Title:       "Lower Spending Rate",
					Description: fmt.Sprintf("You're spending at a %s%% lower rate compared to your previous budget period. Great job!", formatPct((1-ratio)*100)),
				})
			}
		}
	}

	var nonEssential []CategoryProgress
	var nonEssentialSpent float64
	for _, cp := range progress.Categories {
		if cp.Group == models.GroupNonEssential {
			nonEssential = append(nonEssential, cp)
			nonEssentialSpent += cp.Spent
		}
	}
	if len(nonEssential) > 0 && progress.TotalSpent > 0 && nonEssentialSpent > progress.TotalSpent*0.3 {
		share := nonEssentialSpent / progress.TotalSpent * 100
		insights = append(insights, Insight{
			Type:        InsightSuggestion,
			Title:       "Savings Opportunity",
			Description: fmt.Sprintf("%s%% of your spending is in non-essential categories. Consider reducing spending in these areas to increase savings.", formatPct(share)),
			Categories:  nonEssential,
		})
	}

	return insights
}

// spendingSpikeInsights groups the period's expenses by matched
// category and flags transactions more than 1.5 times the category's
// mean. Categories with fewer than three transactions are skipped since
// the mean is too noisy to flag against.
func spendingSpikeInsights(b *models.Budget, transactions []models.Transaction) []Insight {
	names := make([]string, len(b.Categories))
	for i := range b.Categories {
		names[i] = b.Categories[i].Name
	}

	grouped := make(map[string][]FlaggedTransaction)
	for i := range transactions {
		tx := &transactions[i]
		if tx.Type != models.TransactionTypeExpense {
			continue
		}
		key := matchCategoryForReport(tx.Description, names)
		grouped[key] = append(grouped[key], FlaggedTransaction{
			Amount: math.Abs(tx.Amount),
			Date:   tx.Date,
		})
	}

	// Iterate in budget order, "Other" last, for deterministic output.
	order := append(append([]string{}, names...), reportOtherBucket)

	var insights []Insight
	for _, name := range order {
		group := grouped[name]
		if len(group) < 3 {
			continue
		}
		var sum float64
		for _, t := range group {
			sum += t.Amount
		}
		mean := sum / float64(len(group))

		var flagged []FlaggedTransaction
		for _, t := range group {
			if t.Amount > mean*1.5 {
				flagged = append(flagged, t)
			}
		}
		if len(flagged) > 0 {
			insights = append(insights, Insight{
				Type:         InsightInfo,
				Title:        fmt.Sprintf("Unusual Spending in %s", name),
				Description:  fmt.Sprintf("You had %d transactions in %s that were significantly higher than your average spending in this category.", len(flagged), name),
				Transactions: flagged,
			})
		}
	}
	return insights
}

// instantiateCategories expands a template's percentage allocations
// into concrete categories for the given total. Subcategory limits are
// relative to the parent's computed limit, not the grand total.
// Subcategories inherit the parent's group, and its color when they
// carry none of their own.
func instantiateCategories(t *models.BudgetTemplate, totalBudget float64) []models.BudgetCategory {
	categories := make([]models.BudgetCategory, 0, len(t.Categories))
	for i := range t.Categories {
		tc := &t.Categories[i]
		limit := totalBudget * tc.Percentage / 100

		cat := models.BudgetCategory{
			Name:           tc.Name,
			Limit:          limit,
			Spent:          0,
			Color:          tc.Color,
			Group:          tc.Group,
			AlertThreshold: models.DefaultAlertThreshold,
		}

		for j := range tc.Subcategories {
			ts := &tc.Subcategories[j]
			color := ts.Color
			if color == "" {
				color = tc.Color
			}
			cat.Subcategories = append(cat.Subcategories, models.BudgetCategory{
				Name:           ts.Name,
				Limit:          limit * ts.Percentage / 100,
				Spent:          0,
				Color:          color,
				Group:          tc.Group,
				AlertThreshold: models.DefaultAlertThreshold,
				IsSubcategory:  true,
			})
		}

		categories = append(categories, cat)
	}
	return categories
}

// deriveTemplateCategories inverts a budget's absolute limits back into
// percentages of its total. The inverse is lossy: spent amounts,
// thresholds, and subcategory structure are not carried over.
func deriveTemplateCategories(b *models.Budget) []models.TemplateCategory {
	categories := make([]models.TemplateCategory, 0, len(b.Categories))
	for i := range b.Categories {
		cat := &b.Categories[i]
		var pct float64
		if b.TotalBudget > 0 {
			pct = cat.Limit / b.TotalBudget * 100
		}
		group := cat.Group
		if group == "" {
			group = models.GroupOther
		}
		categories = append(categories, models.TemplateCategory{
			Name:       cat.Name,
			Percentage: pct,
			Group:      group,
			Color:      cat.Color,
		})
	}
	return categories
}
