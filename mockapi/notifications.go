package mockapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"servigo-client/models"
)

// notify inserts a notification for an account. Delivery (push, SMS) is out of
// scope for the dev server; the inbox row is the delivery.
func (s *Server) notify(accountID uint, title, message, notifType string) {
	n := models.Notification{
		AccountID: accountID,
		Title:     title,
		Message:   message,
		Type:      notifType,
	}
	if err := s.db.Create(&n).Error; err != nil {
		log.Printf("⚠️ Failed to store notification for account %d: %v", accountID, err)
	}
}

func (s *Server) handleNotifications(c *gin.Context) {
	account := currentAccount(c)

	var notifications []models.Notification
	if err := s.db.Where("account_id = ?", account.ID).
		Order("created_at DESC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load notifications"})
		return
	}
	var unread int64
	s.db.Model(&models.Notification{}).
		Where("account_id = ? AND read = ?", account.ID, false).Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (s *Server) handleNotificationRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", id, account.ID).
		Update("read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update notification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

func (s *Server) handleNotificationsReadAll(c *gin.Context) {
	account := currentAccount(c)
	if err := s.db.Model(&models.Notification{}).
		Where("account_id = ? AND read = ?", account.ID, false).
		Update("read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}

func (s *Server) handleNotificationDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	result := s.db.Where("id = ? AND account_id = ?", id, account.ID).
		Delete(&models.Notification{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete notification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
