package services

import (
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "finsav/internal/errors"
	"finsav/internal/models"
)

type reportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportService creates a new report service backed by the given database.
func NewReportService(db *gorm.DB) ReportServicer {
	return &reportService{db: db, now: time.Now}
}

// dateRange resolves optional report bounds: start defaults to January 1
// of the current year, end defaults to now and is pushed to end of day.
func (s *reportService) dateRange(startDate, endDate *time.Time) (time.Time, time.Time, error) {
	now := s.now()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	if startDate != nil {
		start = *startDate
	}
	end := now
	if endDate != nil {
		end = *endDate
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())

	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.ErrInvalidDateRange
	}
	return start, end, nil
}

// sundayWeek returns the Sunday-based week-of-year: week 1 begins on the
// first Sunday of the year and earlier days fall in week 0.
func sundayWeek(t time.Time) int {
	return (t.YearDay() + 6 - int(t.Weekday())) / 7
}

// bucketKey formats a date into its aggregation bucket for the given
// period type.
func bucketKey(periodType string, t time.Time) string {
	switch periodType {
	case "daily":
		return t.Format("2006-01-02")
	case "weekly":
		return fmt.Sprintf("%d-W%02d", t.Year(), sundayWeek(t))
	default:
		return t.Format("2006-01")
	}
}

// IncomeExpenseReport aggregates the user's transactions into daily,
// weekly, or monthly buckets with income, expense, and savings totals.
// Only buckets with at least one transaction appear.
func (s *reportService) IncomeExpenseReport(userID string, startDate, endDate *time.Time, periodType string) (*IncomeExpenseReport, error) {
	if periodType == "" {
		periodType = "monthly"
	}
	start, end, err := s.dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var transactions []models.Transaction
	dbErr := s.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC").
		Find(&transactions).Error
	if dbErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	buckets := make(map[string]*IncomeExpensePoint)
	var order []string
	for i := range transactions {
		tx := &transactions[i]
		key := bucketKey(periodType, tx.Date)
		point, ok := buckets[key]
		if !ok {
			point = &IncomeExpensePoint{Period: key}
			buckets[key] = point
			order = append(order, key)
		}
		if tx.Type == models.TransactionTypeIncome {
			point.Income += tx.Amount
		} else {
			point.Expense += math.Abs(tx.Amount)
		}
	}
	sort.Strings(order)

	report := &IncomeExpenseReport{
		StartDate:  start,
		EndDate:    end,
		PeriodType: periodType,
		Data:       make([]IncomeExpensePoint, 0, len(order)),
	}
	for _, key := range order {
		point := buckets[key]
		point.Savings = point.Income - point.Expense
		report.Data = append(report.Data, *point)
	}
	return report, nil
}

// CategoryReport buckets the user's expenses by budget category name
// using the description matcher, with unmatched spending collected
// under "Other". Rows are sorted by amount, largest first.
func (s *reportService) CategoryReport(userID string, startDate, endDate *time.Time) (*CategoryReport, error) {
	start, end, err := s.dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var budgets []models.Budget
	dbErr := s.db.
		Preload("Categories", "parent_id IS NULL").
		Where("user_id = ?", userID).
		Find(&budgets).Error
	if dbErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	seen := make(map[string]bool)
	var names []string
	for i := range budgets {
		for j := range budgets[i].Categories {
			name := budgets[i].Categories[j].Name
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	var transactions []models.Transaction
	dbErr = s.db.
		Where("user_id = ? AND type = ? AND date >= ? AND date <= ?",
			userID, models.TransactionTypeExpense, start, end).
		Order("date ASC").
		Find(&transactions).Error
	if dbErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	amounts := make(map[string]float64, len(names)+1)
	for _, name := range names {
		amounts[name] = 0
	}
	amounts[reportOtherBucket] = 0

	for i := range transactions {
		key := matchCategoryForReport(transactions[i].Description, names)
		amounts[key] += math.Abs(transactions[i].Amount)
	}

	report := &CategoryReport{
		StartDate: start,
		EndDate:   end,
		Data:      make([]CategoryAmount, 0, len(amounts)),
	}
	for _, name := range append(append([]string{}, names...), reportOtherBucket) {
		report.Data = append(report.Data, CategoryAmount{Category: name, Amount: amounts[name]})
		report.TotalSpent += amounts[name]
	}
	sort.SliceStable(report.Data, func(i, j int) bool {
		return report.Data[i].Amount > report.Data[j].Amount
	})
	return report, nil
}

// SavingsReport summarizes income, expense, and savings for every month
// of the given year. Months without transactions report zeroes, and the
// average is always taken over twelve months.
func (s *reportService) SavingsReport(userID string, year int) (*SavingsReport, error) {
	if year == 0 {
		year = s.now().Year()
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report := &SavingsReport{
		Year: year,
		Data: make([]MonthlySavings, 12),
	}
	for m := 0; m < 12; m++ {
		report.Data[m] = MonthlySavings{
			Month:     m + 1,
			MonthName: time.Month(m + 1).String(),
		}
	}

	for i := range transactions {
		tx := &transactions[i]
		entry := &report.Data[int(tx.Date.Month())-1]
		if tx.Type == models.TransactionTypeIncome {
			entry.Income += tx.Amount
		} else {
			entry.Expense += math.Abs(tx.Amount)
		}
	}

	for m := range report.Data {
		entry := &report.Data[m]
		entry.Savings = entry.Income - entry.Expense
		report.TotalIncome += entry.Income
		report.TotalExpense += entry.Expense
	}
	report.TotalSavings = report.TotalIncome - report.TotalExpense
	report.AverageMonthlySavings = report.TotalSavings / 12
	return report, nil
}

// trendDirection classifies the change between the last two points of a
// series. A flat or too-short series is stable; movement beyond five
// percent of the previous value counts as a trend.
func trendDirection(series []float64) TrendDirection {
	if len(series) < 2 {
		return TrendStable
	}
	current := series[len(series)-1]
	previous := series[len(series)-2]
	if previous == 0 {
		if current > 0 {
			return TrendIncreasing
		}
		if current < 0 {
			return TrendDecreasing
		}
		return TrendStable
	}
	change := (current - previous) / math.Abs(previous) * 100
	if change > 5 {
		return TrendIncreasing
	}
	if change < -5 {
		return TrendDecreasing
	}
	return TrendStable
}

// TransactionTrends reports per-month income, expense, and transaction
// counts over the last N months (default six), with coarse direction
// indicators derived from the final two months.
func (s *reportService) TransactionTrends(userID string, months int) (*TrendsReport, error) {
	if months <= 0 {
		months = 6
	}
	end := s.now()
	start := end.AddDate(0, -months, 0)

	var transactions []models.Transaction
	err := s.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Every month in the range gets a data point, even empty ones.
	var keys []string
	index := make(map[string]int)
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	for !cursor.After(last) {
		key := cursor.Format("2006-01")
		index[key] = len(keys)
		keys = append(keys, key)
		cursor = cursor.AddDate(0, 1, 0)
	}

	data := make([]TrendPoint, len(keys))
	for i, key := range keys {
		data[i] = TrendPoint{Month: key}
	}
	for i := range transactions {
		tx := &transactions[i]
		pos, ok := index[tx.Date.Format("2006-01")]
		if !ok {
			continue
		}
		if tx.Type == models.TransactionTypeIncome {
			data[pos].Income += tx.Amount
		} else {
			data[pos].Expense += math.Abs(tx.Amount)
		}
		data[pos].Transactions++
	}

	income := make([]float64, len(data))
	expense := make([]float64, len(data))
	savings := make([]float64, len(data))
	for i, point := range data {
		income[i] = point.Income
		expense[i] = point.Expense
		savings[i] = point.Income - point.Expense
	}

	return &TrendsReport{
		StartDate: start,
		EndDate:   end,
		Months:    months,
		Trends: TrendSummary{
			Income:  trendDirection(income),
			Expense: trendDirection(expense),
			Savings: trendDirection(savings),
		},
		Data: data,
	}, nil
}

// ExportTransactionsCSV renders the user's transactions in the range as
// CSV rows of date, description, type, and absolute amount. Commas in
// descriptions are replaced with spaces. Returns the suggested filename
// along with the file contents.
func (s *reportService) ExportTransactionsCSV(userID string, startDate, endDate *time.Time) (string, []byte, error) {
	start, end, err := s.dateRange(startDate, endDate)
	if err != nil {
		return "", nil, err
	}

	var transactions []models.Transaction
	dbErr := s.db.
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC").
		Find(&transactions).Error
	if dbErr != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, dbErr)
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Description", "Type", "Amount"}); err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range transactions {
		tx := &transactions[i]
		record := []string{
			tx.Date.Format("2006-01-02"),
			strings.ReplaceAll(tx.Description, ",", " "),
			string(tx.Type),
			fmt.Sprintf("%g", math.Abs(tx.Amount)),
		}
		if err := w.Write(record); err != nil {
			return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	filename := fmt.Sprintf("transactions_%s_to_%s.csv", start.Format("2006-01-02"), end.Format("2006-01-02"))
	return filename, []byte(buf.String()), nil
}
