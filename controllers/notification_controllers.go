package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobook/models"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/gorm"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// MyNotifications lists the caller's notifications, newest first.
func (nc *NotificationController) MyNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	notifs := []models.Notification{}
	if err := nc.DB.Where("user_id = ?", actor.UserID).Order("created_at DESC").Order("id DESC").Find(&notifs).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var unread int64
	for _, n := range notifs {
		if !n.IsRead {
			unread++
		}
	}
	utils.RespondJSON(c, http.StatusOK, "My notifications", gin.H{
		"notifications": notifs,
		"unread":        unread,
	})
}

// MarkRead -> PATCH /notifications/:notif_id/read
func (nc *NotificationController) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "notif_id")
	if !ok {
		return
	}

	var notif models.Notification
	if err := nc.DB.Where("user_id = ?", actor.UserID).First(&notif, id).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	if !notif.IsRead {
		if err := nc.DB.Model(&notif).Update("is_read", true).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", notif)
}
