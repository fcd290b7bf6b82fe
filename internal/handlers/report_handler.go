package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finsav/internal/errors"
	"finsav/internal/services"
)

// ReportHandler handles reporting requests.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// parseDateQuery reads an optional RFC 3339 or date-only query parameter.
func parseDateQuery(c *gin.Context, param string) (*time.Time, error) {
	v := c.Query(param)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t, err = time.Parse("2006-01-02", v)
	}
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, param+" must be a date")
	}
	return &t, nil
}

// GetIncomeExpenseReport handles the income-vs-expense report.
// @Summary     Income vs expense report
// @Description Aggregate income and expenses into daily, weekly, or monthly buckets
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Range start (defaults to January 1 of this year)"
// @Param       end_date   query string false "Range end (defaults to today)"
// @Param       period     query string false "Bucket size (daily/weekly/monthly, default monthly)"
// @Success     200 {object} services.IncomeExpenseReport "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/income-expense [get]
func (h *ReportHandler) GetIncomeExpenseReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, err := parseDateQuery(c, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDateQuery(c, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	period := c.DefaultQuery("period", "monthly")
	if period != "daily" && period != "weekly" && period != "monthly" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be 'daily', 'weekly' or 'monthly'"))
		return
	}

	report, err := h.reportService.IncomeExpenseReport(userID, start, end, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetCategoryReport handles the spending-by-category report.
// @Summary     Category spending report
// @Description Break down expense spending by matched budget category
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       start_date query string false "Range start (defaults to January 1 of this year)"
// @Param       end_date   query string false "Range end (defaults to today)"
// @Success     200 {object} services.CategoryReport "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories [get]
func (h *ReportHandler) GetCategoryReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, err := parseDateQuery(c, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDateQuery(c, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.CategoryReport(userID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetSavingsReport handles the yearly savings report.
// @Summary     Savings report
// @Description Month-by-month income, expense, and savings for a year
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       year query int false "Year (defaults to the current year)"
// @Success     200 {object} services.SavingsReport "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/savings [get]
func (h *ReportHandler) GetSavingsReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var year int
	if v := c.Query("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1970 || year > 9999 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be a four digit year"))
			return
		}
	}

	report, err := h.reportService.SavingsReport(userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetTransactionTrends handles the transaction trends report.
// @Summary     Transaction trends
// @Description Per-month totals with coarse direction indicators over the last N months
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of months to look back (default 6)"
// @Success     200 {object} services.TrendsReport "Report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/trends [get]
func (h *ReportHandler) GetTransactionTrends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months := 0
	if v := c.Query("months"); v != "" {
		months, err = strconv.Atoi(v)
		if err != nil || months < 1 || months > 120 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be between 1 and 120"))
			return
		}
	}

	report, err := h.reportService.TransactionTrends(userID, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportTransactions handles the CSV export download.
// @Summary     Export transactions as CSV
// @Description Download the range's transactions as a CSV file
// @Tags        reports
// @Accept      json
// @Produce     text/csv
// @Security    BearerAuth
// @Param       start_date query string false "Range start (defaults to January 1 of this year)"
// @Param       end_date   query string false "Range end (defaults to today)"
// @Success     200 {string} string "CSV file"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/export [get]
func (h *ReportHandler) ExportTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	start, err := parseDateQuery(c, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDateQuery(c, "end_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	filename, data, err := h.reportService.ExportTransactionsCSV(userID, start, end)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
