package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/database/announcements"
	"github.com/mrlokans/library-manager/internal/entities"
)

const announcementPageSize = 50

type AnnouncementsController struct {
	store   AnnouncementStore
	auditor ActivityAuditor
}

func NewAnnouncementsController(store AnnouncementStore, auditor ActivityAuditor) *AnnouncementsController {
	return &AnnouncementsController{
		store:   store,
		auditor: auditor,
	}
}

// Latest handles GET /api/announcements/latest. Anonymous callers only see
// announcements addressed to everyone.
func (ac *AnnouncementsController) Latest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(announcements.DefaultLatest)))
	if limit < 1 || limit > announcementPageSize {
		limit = announcements.DefaultLatest
	}

	list, err := ac.store.ForRole(identity(c).Role, limit)
	if err != nil {
		respondInternalError(c, err, "latest announcements")
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list})
}

// List handles GET /api/announcements. Staff get the full history, everyone
// else the announcements addressed to their role.
func (ac *AnnouncementsController) List(c *gin.Context) {
	who := identity(c)

	var (
		list []entities.Announcement
		err  error
	)
	if who.Role.IsStaff() {
		list, err = ac.store.List()
	} else {
		list, err = ac.store.ForRole(who.Role, announcementPageSize)
	}
	if err != nil {
		respondInternalError(c, err, "list announcements")
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list, "count": len(list)})
}

// Create handles POST /api/announcements
func (ac *AnnouncementsController) Create(c *gin.Context) {
	var in announcements.Input
	if !bindInput(c, &in) {
		return
	}

	who := identity(c)
	announcement, err := ac.store.Create(who.LoginID, in)
	if err != nil {
		respondServiceError(c, err, "create announcement")
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogAnnouncement(who.UserID, announcement.ID, announcement.Title, announcement.Audience)
	}
	respondCreated(c, announcement)
}
