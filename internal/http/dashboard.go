package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/entities"
)

// FeaturedBooks is how many books the borrower dashboard suggests.
const FeaturedBooks = 6

// DashboardController renders the landing data for each role.
type DashboardController struct {
	books         BookStore
	loans         LoanQueries
	announcements AnnouncementStore
	reports       ReportStore
	users         UserStore
}

func NewDashboardController(books BookStore, loans LoanQueries, announcements AnnouncementStore, reports ReportStore, users UserStore) *DashboardController {
	return &DashboardController{
		books:         books,
		loans:         loans,
		announcements: announcements,
		reports:       reports,
		users:         users,
	}
}

// Dashboard handles GET /api/dashboard
func (dc *DashboardController) Dashboard(c *gin.Context) {
	who := identity(c)

	news, err := dc.announcements.ForRole(who.Role, announcements.DefaultLatest)
	if err != nil {
		respondInternalError(c, err, "dashboard announcements")
		return
	}

	if who.Role.IsStaff() {
		stats, err := dc.reports.Dashboard()
		if err != nil {
			respondInternalError(c, err, "dashboard stats")
			return
		}
		queue, err := dc.loans.ListActionable()
		if err != nil {
			respondInternalError(c, err, "dashboard requests")
			return
		}
		body := gin.H{
			"role":          who.Role,
			"stats":         stats,
			"open_requests": len(queue),
			"announcements": news,
		}
		if who.Role == entities.UserRoleAdmin {
			pending, err := dc.users.PendingApprovals()
			if err != nil {
				respondInternalError(c, err, "dashboard approvals")
				return
			}
			body["pending_approvals"] = len(pending.Students) + len(pending.Faculty) + len(pending.Librarians)
		}
		c.JSON(http.StatusOK, body)
		return
	}

	records, err := dc.loans.ListForUser(who.UserID)
	if err != nil {
		respondInternalError(c, err, "dashboard records")
		return
	}
	featured, err := dc.books.Featured(FeaturedBooks)
	if err != nil {
		respondInternalError(c, err, "dashboard featured books")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":          who.Role,
		"records":       records,
		"featured":      featured,
		"announcements": news,
	})
}
