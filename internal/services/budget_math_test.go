package services

import (
	"strings"
	"testing"
	"time"

	"finsav/internal/models"
)

func mathBudget(total float64, categories ...models.BudgetCategory) *models.Budget {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b := &models.Budget{
		Name:        "March",
		TotalBudget: total,
		Period:      models.BudgetPeriodMonthly,
		StartDate:   start,
		EndDate:     models.BudgetPeriodMonthly.EndDate(start),
		Notifications: models.NotificationSettings{
			Enabled:         true,
			ThresholdAlerts: true,
		},
		Categories: categories,
	}
	return b
}

func mathCategory(name string, limit, spent float64) models.BudgetCategory {
	return models.BudgetCategory{
		Name:           name,
		Limit:          limit,
		Spent:          spent,
		Group:          models.GroupOther,
		AlertThreshold: models.DefaultAlertThreshold,
	}
}

func expense(description string, amount float64, date time.Time) models.Transaction {
	return models.Transaction{
		Type:        models.TransactionTypeExpense,
		Amount:      -amount,
		Description: description,
		Date:        date,
	}
}

func TestMatchCategoryForSync(t *testing.T) {
	categories := []models.BudgetCategory{
		mathCategory("Food", 500, 0),
		mathCategory("Transport", 200, 0),
	}

	t.Run("matches case-insensitive substring", func(t *testing.T) {
		got := matchCategoryForSync("FAST FOOD restaurant", categories)
		if got == nil || got.Name != "Food" {
			t.Fatalf("expected Food, got %v", got)
		}
	})

	t.Run("first category in budget order wins", func(t *testing.T) {
		cats := []models.BudgetCategory{
			mathCategory("Food", 500, 0),
			mathCategory("Fast Food", 100, 0),
		}
		got := matchCategoryForSync("fast food run", cats)
		if got == nil || got.Name != "Food" {
			t.Fatalf("expected Food (first match), got %v", got)
		}
	})

	t.Run("returns nil when nothing matches", func(t *testing.T) {
		if got := matchCategoryForSync("pharmacy", categories); got != nil {
			t.Fatalf("expected nil, got %v", got.Name)
		}
	})
}

func TestMatchCategoryForReport(t *testing.T) {
	names := []string{"Grocery", "Rent"}

	t.Run("matches substring", func(t *testing.T) {
		if got := matchCategoryForReport("Grocery Store", names); got != "Grocery" {
			t.Errorf("expected Grocery, got %q", got)
		}
	})

	t.Run("falls back to Other", func(t *testing.T) {
		if got := matchCategoryForReport("cinema tickets", names); got != "Other" {
			t.Errorf("expected Other, got %q", got)
		}
	})
}

func TestComputeProgress(t *testing.T) {
	t.Run("totals and per-category figures", func(t *testing.T) {
		b := mathBudget(1000,
			mathCategory("Food", 500, 250),
			mathCategory("Rent", 400, 400),
		)
		p := computeProgress(b)

		if p.TotalSpent != 650 {
			t.Errorf("total spent: expected 650, got %v", p.TotalSpent)
		}
		if p.TotalRemaining != 350 {
			t.Errorf("total remaining: expected 350, got %v", p.TotalRemaining)
		}
		if p.Percentage != 65 {
			t.Errorf("percentage: expected 65, got %v", p.Percentage)
		}
		if p.Categories[0].Percentage != 50 {
			t.Errorf("Food percentage: expected 50, got %v", p.Categories[0].Percentage)
		}
		if p.Categories[1].Percentage != 100 {
			t.Errorf("Rent percentage: expected 100, got %v", p.Categories[1].Percentage)
		}
	})

	t.Run("overspend keeps negative remaining but caps percentage", func(t *testing.T) {
		b := mathBudget(100, mathCategory("Food", 100, 150))
		p := computeProgress(b)

		if p.Categories[0].Remaining != -50 {
			t.Errorf("remaining: expected -50, got %v", p.Categories[0].Remaining)
		}
		if p.Categories[0].Percentage != 100 {
			t.Errorf("percentage: expected cap at 100, got %v", p.Categories[0].Percentage)
		}
	})

	t.Run("zero limit never reads as overspent", func(t *testing.T) {
		b := mathBudget(0, mathCategory("Food", 0, 75))
		p := computeProgress(b)

		if p.Categories[0].Percentage != 0 {
			t.Errorf("category percentage: expected 0, got %v", p.Categories[0].Percentage)
		}
		if p.Percentage != 0 {
			t.Errorf("budget percentage: expected 0, got %v", p.Percentage)
		}
	})
}

func TestSyncCategories(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("resets then accumulates matching expenses", func(t *testing.T) {
		b := mathBudget(1000,
			mathCategory("Food", 500, 999),
			mathCategory("Transport", 200, 0),
		)
		txs := []models.Transaction{
			expense("Fast Food lunch", 30, start.AddDate(0, 0, 2)),
			expense("food delivery", 20, start.AddDate(0, 0, 5)),
			expense("transport card", 40, start.AddDate(0, 0, 6)),
		}
		syncCategories(b, txs)

		if b.Categories[0].Spent != 50 {
			t.Errorf("Food spent: expected 50, got %v", b.Categories[0].Spent)
		}
		if b.Categories[1].Spent != 40 {
			t.Errorf("Transport spent: expected 40, got %v", b.Categories[1].Spent)
		}
	})

	t.Run("idempotent over the same transactions", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 500, 0))
		txs := []models.Transaction{expense("food", 25, start.AddDate(0, 0, 1))}

		syncCategories(b, txs)
		syncCategories(b, txs)

		if b.Categories[0].Spent != 25 {
			t.Errorf("expected 25 after two syncs, got %v", b.Categories[0].Spent)
		}
	})

	t.Run("drops unmatched, out-of-window, and income transactions", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 500, 0))
		txs := []models.Transaction{
			expense("pharmacy", 30, start.AddDate(0, 0, 2)),
			expense("food court", 10, start.AddDate(0, 0, -1)),
			expense("food court", 10, b.EndDate.AddDate(0, 0, 1)),
			{Type: models.TransactionTypeIncome, Amount: 500, Description: "food stipend", Date: start.AddDate(0, 0, 3)},
		}
		syncCategories(b, txs)

		if b.Categories[0].Spent != 0 {
			t.Errorf("expected 0, got %v", b.Categories[0].Spent)
		}
	})

	t.Run("window is inclusive on both ends", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 500, 0))
		txs := []models.Transaction{
			expense("food", 10, b.StartDate),
			expense("food", 15, b.EndDate),
		}
		syncCategories(b, txs)

		if b.Categories[0].Spent != 25 {
			t.Errorf("expected 25, got %v", b.Categories[0].Spent)
		}
	})
}

func TestEvaluateAlerts(t *testing.T) {
	t.Run("fires at or above threshold", func(t *testing.T) {
		b := mathBudget(1000,
			mathCategory("Food", 100, 90),
			mathCategory("Rent", 100, 79),
		)
		alerts := evaluateAlerts(b)

		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].Category != "Food" || alerts[0].Percentage != 90 {
			t.Errorf("unexpected alert: %+v", alerts[0])
		}
	})

	t.Run("silent when threshold alerts disabled", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 100, 100))
		b.Notifications.ThresholdAlerts = false

		if alerts := evaluateAlerts(b); alerts != nil {
			t.Errorf("expected no alerts, got %v", alerts)
		}
	})

	t.Run("zero limit never alerts", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 0, 50))

		if alerts := evaluateAlerts(b); len(alerts) != 0 {
			t.Errorf("expected no alerts, got %v", alerts)
		}
	})
}

func TestCompareBudgets(t *testing.T) {
	b1 := mathBudget(1000,
		mathCategory("Rent", 400, 400),
		mathCategory("Food", 300, 150),
	)
	b1.Name = "February"
	b2 := mathBudget(1200,
		mathCategory("Food", 350, 200),
		mathCategory("Travel", 250, 100),
	)
	b2.Name = "March"

	cmp := compareBudgets(b1, b2)

	t.Run("totals are second minus first", func(t *testing.T) {
		if cmp.Difference.TotalBudget != 200 {
			t.Errorf("budget diff: expected 200, got %v", cmp.Difference.TotalBudget)
		}
		if cmp.Difference.TotalSpent != -250 {
			t.Errorf("spent diff: expected -250, got %v", cmp.Difference.TotalSpent)
		}
	})

	t.Run("category union keeps first budget order then extras", func(t *testing.T) {
		var names []string
		for _, c := range cmp.Categories {
			names = append(names, c.Name)
		}
		if got := strings.Join(names, ","); got != "Rent,Food,Travel" {
			t.Errorf("expected Rent,Food,Travel, got %s", got)
		}
	})

	t.Run("missing side is nil and contributes zero", func(t *testing.T) {
		rent := cmp.Categories[0]
		if rent.Budget2 != nil {
			t.Errorf("expected nil second side for Rent")
		}
		if rent.Difference.Limit != -400 || rent.Difference.Spent != -400 {
			t.Errorf("unexpected Rent difference: %+v", rent.Difference)
		}

		travel := cmp.Categories[2]
		if travel.Budget1 != nil {
			t.Errorf("expected nil first side for Travel")
		}
		if travel.Difference.Limit != 250 {
			t.Errorf("unexpected Travel limit diff: %v", travel.Difference.Limit)
		}
	})

	t.Run("shared category diffs both sides", func(t *testing.T) {
		food := cmp.Categories[1]
		if food.Budget1 == nil || food.Budget2 == nil {
			t.Fatalf("expected both sides for Food")
		}
		if food.Difference.Limit != 50 || food.Difference.Spent != 50 {
			t.Errorf("unexpected Food difference: %+v", food.Difference)
		}
	})

	t.Run("swapping arguments negates the differences", func(t *testing.T) {
		rev := compareBudgets(b2, b1)
		if rev.Difference.TotalBudget != -cmp.Difference.TotalBudget {
			t.Errorf("expected negated budget diff, got %v", rev.Difference.TotalBudget)
		}
		if rev.Difference.TotalSpent != -cmp.Difference.TotalSpent {
			t.Errorf("expected negated spent diff, got %v", rev.Difference.TotalSpent)
		}
	})
}

func TestGenerateInsights(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	findInsight := func(insights []Insight, title string) *Insight {
		for i := range insights {
			if insights[i].Title == title {
				return &insights[i]
			}
		}
		return nil
	}

	t.Run("near depletion warning", func(t *testing.T) {
		b := mathBudget(100, mathCategory("Food", 100, 95))
		insights := generateInsights(b, computeProgress(b), nil, nil, start.AddDate(0, 0, 3))

		in := findInsight(insights, "Budget Almost Depleted")
		if in == nil {
			t.Fatal("expected depletion warning")
		}
		if in.Type != InsightWarning {
			t.Errorf("expected warning type, got %s", in.Type)
		}
		if !strings.Contains(in.Description, "95.0%") {
			t.Errorf("expected 95.0%% in description, got %q", in.Description)
		}
	})

	t.Run("on track only after the midpoint", func(t *testing.T) {
		b := mathBudget(100, mathCategory("Food", 100, 10))

		early := generateInsights(b, computeProgress(b), nil, nil, start.AddDate(0, 0, 3))
		if findInsight(early, "Budget On Track") != nil {
			t.Error("did not expect on-track insight before the midpoint")
		}

		late := generateInsights(b, computeProgress(b), nil, nil, start.AddDate(0, 0, 20))
		if findInsight(late, "Budget On Track") == nil {
			t.Error("expected on-track insight after the midpoint")
		}
	})

	t.Run("categories approaching limits", func(t *testing.T) {
		b := mathBudget(1000,
			mathCategory("Food", 100, 85),
			mathCategory("Rent", 100, 80),
			mathCategory("Fun", 100, 10),
		)
		insights := generateInsights(b, computeProgress(b), nil, nil, start)

		in := findInsight(insights, "Categories Approaching Limits")
		if in == nil {
			t.Fatal("expected approaching-limits warning")
		}
		if len(in.Categories) != 2 {
			t.Errorf("expected 2 at-risk categories, got %d", len(in.Categories))
		}
		if !strings.Contains(in.Description, "Food, Rent") {
			t.Errorf("expected category names in description, got %q", in.Description)
		}
	})

	t.Run("unusual spending needs three transactions and a spike", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 500, 0))
		txs := []models.Transaction{
			expense("food", 10, start.AddDate(0, 0, 1)),
			expense("food", 12, start.AddDate(0, 0, 2)),
			expense("food", 100, start.AddDate(0, 0, 3)),
		}
		insights := generateInsights(b, computeProgress(b), txs, nil, start)

		in := findInsight(insights, "Unusual Spending in Food")
		if in == nil {
			t.Fatal("expected unusual spending insight")
		}
		if len(in.Transactions) != 1 || in.Transactions[0].Amount != 100 {
			t.Errorf("expected the 100 transaction flagged, got %+v", in.Transactions)
		}

		// Two transactions are not enough of a baseline.
		few := generateInsights(b, computeProgress(b), txs[1:], nil, start)
		if findInsight(few, "Unusual Spending in Food") != nil {
			t.Error("did not expect insight with fewer than three transactions")
		}
	})

	t.Run("spending rate versus previous period", func(t *testing.T) {
		b := mathBudget(100, mathCategory("Food", 100, 60))
		prev := mathBudget(100, mathCategory("Food", 100, 40))

		insights := generateInsights(b, computeProgress(b), nil, prev, start)
		in := findInsight(insights, "Higher Spending Rate")
		if in == nil {
			t.Fatal("expected higher-rate warning")
		}
		if !strings.Contains(in.Description, "50.0%") {
			t.Errorf("expected 50.0%% higher rate, got %q", in.Description)
		}

		lower := mathBudget(100, mathCategory("Food", 100, 20))
		insights = generateInsights(lower, computeProgress(lower), nil, prev, start)
		in = findInsight(insights, "Lower Spending Rate")
		if in == nil {
			t.Fatal("expected lower-rate insight")
		}
		if !strings.Contains(in.Description, "50.0%") {
			t.Errorf("expected 50.0%% lower rate, got %q", in.Description)
		}
	})

	t.Run("previous period with zero spend is no baseline", func(t *testing.T) {
		b := mathBudget(100, mathCategory("Food", 100, 60))
		prev := mathBudget(100, mathCategory("Food", 100, 0))

		insights := generateInsights(b, computeProgress(b), nil, prev, start)
		if findInsight(insights, "Higher Spending Rate") != nil {
			t.Error("did not expect rate comparison against an untouched previous budget")
		}
	})

	t.Run("savings opportunity on heavy non-essential spending", func(t *testing.T) {
		b := mathBudget(1000,
			mathCategory("Rent", 500, 300),
			models.BudgetCategory{
				Name:           "Entertainment",
				Limit:          300,
				Spent:          200,
				Group:          models.GroupNonEssential,
				AlertThreshold: models.DefaultAlertThreshold,
			},
		)
		insights := generateInsights(b, computeProgress(b), nil, nil, start)

		in := findInsight(insights, "Savings Opportunity")
		if in == nil {
			t.Fatal("expected savings suggestion")
		}
		if in.Type != InsightSuggestion {
			t.Errorf("expected suggestion type, got %s", in.Type)
		}
		if !strings.Contains(in.Description, "40.0%") {
			t.Errorf("expected 40.0%% share, got %q", in.Description)
		}
	})

	t.Run("quiet budget produces no insights", func(t *testing.T) {
		b := mathBudget(1000, mathCategory("Food", 500, 200))
		insights := generateInsights(b, computeProgress(b), nil, nil, start.AddDate(0, 0, 3))

		if len(insights) != 0 {
			t.Errorf("expected no insights, got %d: %+v", len(insights), insights)
		}
	})
}

func TestTemplateInstantiation(t *testing.T) {
	template := &models.BudgetTemplate{
		Name: "Split",
		Categories: []models.TemplateCategory{
			{
				Name:       "Needs",
				Percentage: 50,
				Group:      models.GroupEssential,
				Color:      "#4caf50",
				Subcategories: []models.TemplateSubcategory{
					{Name: "Housing", Percentage: 50, Color: "#81c784"},
					{Name: "Groceries", Percentage: 20},
				},
			},
			{Name: "Wants", Percentage: 30, Group: models.GroupNonEssential, Color: "#2196f3"},
		},
	}

	cats := instantiateCategories(template, 2000)

	t.Run("limits derive from percentages of the total", func(t *testing.T) {
		if cats[0].Limit != 1000 {
			t.Errorf("Needs limit: expected 1000, got %v", cats[0].Limit)
		}
		if cats[1].Limit != 600 {
			t.Errorf("Wants limit: expected 600, got %v", cats[1].Limit)
		}
	})

	t.Run("subcategory limits are relative to the parent", func(t *testing.T) {
		subs := cats[0].Subcategories
		if subs[0].Limit != 500 {
			t.Errorf("Housing limit: expected 500 (50%% of 1000), got %v", subs[0].Limit)
		}
		if subs[1].Limit != 200 {
			t.Errorf("Groceries limit: expected 200, got %v", subs[1].Limit)
		}
	})

	t.Run("subcategories inherit group and fall back to parent color", func(t *testing.T) {
		subs := cats[0].Subcategories
		if subs[0].Color != "#81c784" {
			t.Errorf("expected own color kept, got %s", subs[0].Color)
		}
		if subs[1].Color != "#4caf50" {
			t.Errorf("expected parent color inherited, got %s", subs[1].Color)
		}
		if subs[0].Group != models.GroupEssential || !subs[0].IsSubcategory {
			t.Errorf("unexpected subcategory fields: %+v", subs[0])
		}
	})
}

func TestDeriveTemplateCategories(t *testing.T) {
	b := mathBudget(2000,
		models.BudgetCategory{
			Name:  "Needs",
			Limit: 1000,
			Spent: 400,
			Group: models.GroupEssential,
			Color: "#4caf50",
			Subcategories: []models.BudgetCategory{
				{Name: "Housing", Limit: 500},
			},
		},
		mathCategory("Wants", 600, 100),
	)

	derived := deriveTemplateCategories(b)

	t.Run("percentages recover the allocation shares", func(t *testing.T) {
		if derived[0].Percentage != 50 {
			t.Errorf("Needs: expected 50, got %v", derived[0].Percentage)
		}
		if derived[1].Percentage != 30 {
			t.Errorf("Wants: expected 30, got %v", derived[1].Percentage)
		}
	})

	t.Run("spent amounts and subcategories are not carried over", func(t *testing.T) {
		for _, cat := range derived {
			if len(cat.Subcategories) != 0 {
				t.Errorf("expected no subcategories on %s", cat.Name)
			}
		}
	})

	t.Run("zero total yields zero percentages", func(t *testing.T) {
		empty := mathBudget(0, mathCategory("Food", 100, 0))
		got := deriveTemplateCategories(empty)
		if got[0].Percentage != 0 {
			t.Errorf("expected 0, got %v", got[0].Percentage)
		}
	})
}
