package http

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/database/reports"
)

// IssuedReportFilename is the download name of the CSV export.
const IssuedReportFilename = "IssuedBooksReport.csv"

type ReportsController struct {
	store ReportStore
	now   func() time.Time
}

func NewReportsController(store ReportStore) *ReportsController {
	return &ReportsController{
		store: store,
		now:   time.Now,
	}
}

// Dashboard handles GET /api/reports/dashboard
func (rc *ReportsController) Dashboard(c *gin.Context) {
	dashboard, err := rc.store.Dashboard()
	if err != nil {
		respondInternalError(c, err, "report dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// IssuedBooks handles GET /api/reports/issued?page=&limit=
func (rc *ReportsController) IssuedBooks(c *gin.Context) {
	page, size := parsePage(c, reports.DefaultPageSize, 100)

	result, err := rc.store.IssuedBooks(page, size)
	if err != nil {
		respondInternalError(c, err, "issued books report")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportIssuedBooks handles GET /api/reports/issued.csv
func (rc *ReportsController) ExportIssuedBooks(c *gin.Context) {
	var buf bytes.Buffer
	if err := rc.store.ExportIssuedBooksCSV(&buf); err != nil {
		respondInternalError(c, err, "export issued books")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+IssuedReportFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Overdue handles GET /api/reports/overdue
func (rc *ReportsController) Overdue(c *gin.Context) {
	records, err := rc.store.Overdue(rc.now())
	if err != nil {
		respondInternalError(c, err, "overdue report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}
