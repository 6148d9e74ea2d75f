package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"servigo-client/models"
)

// issueScope narrows dispute visibility: admins see everything, users and
// servicers only threads on their own bookings or that they raised.
func (s *Server) issueScope(c *gin.Context) *gorm.DB {
	account := currentAccount(c)
	query := s.db.Model(&models.TransactionIssue{})
	switch account.Role {
	case models.RoleAdmin:
		return query
	case models.RoleServicer:
		return query.Where(
			"raised_by_id = ? OR booking_id IN (?)",
			account.ID,
			s.db.Model(&models.Booking{}).Select("id").Where("servicer_id = ?", account.ID),
		)
	default:
		return query.Where(
			"raised_by_id = ? OR booking_id IN (?)",
			account.ID,
			s.db.Model(&models.Booking{}).Select("id").Where("user_id = ?", account.ID),
		)
	}
}

func (s *Server) handleIssues(c *gin.Context) {
	var issues []models.TransactionIssue
	if err := s.issueScope(c).Preload("RaisedBy").Order("created_at DESC").Find(&issues).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load issues"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

func (s *Server) handleIssue(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var issue models.TransactionIssue
	if err := s.issueScope(c).Preload("RaisedBy").Where("transaction_issues.id = ?", id).
		First(&issue).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Issue not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// handleRaiseIssue opens a dispute against one of the caller's bookings.
func (s *Server) handleRaiseIssue(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	subject := strings.TrimSpace(c.PostForm("subject"))
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Subject is required"})
		return
	}

	var booking models.Booking
	if err := s.db.Where("id = ? AND user_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}

	issue := models.TransactionIssue{
		BookingID:    booking.ID,
		RaisedByID:   account.ID,
		RaisedByRole: account.Role,
		Subject:      subject,
		Description:  c.PostForm("description"),
		Status:       models.IssueStatusPendingReview,
	}
	if err := s.db.Create(&issue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create issue"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"issue": issue})
}

// handleIssueChat returns the full role-tagged thread.
func (s *Server) handleIssueChat(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var issue models.TransactionIssue
	if err := s.issueScope(c).Where("transaction_issues.id = ?", id).First(&issue).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Issue not found"})
		return
	}

	var messages []models.IssueMessage
	if err := s.db.Preload("Attachments").Where("issue_id = ?", issue.ID).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// handleIssueChatPost appends a multipart message. Text or at least one
// attachment is required; attachment bytes are accepted as-is and only their
// metadata is kept by the dev server.
func (s *Server) handleIssueChatPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var issue models.TransactionIssue
	if err := s.issueScope(c).Where("transaction_issues.id = ?", id).First(&issue).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Issue not found"})
		return
	}
	if !issue.Open() {
		c.JSON(http.StatusConflict, gin.H{"detail": "Issue is closed"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Expected multipart form data"})
		return
	}
	text := ""
	if values := form.Value["text"]; len(values) > 0 {
		text = values[0]
	}
	files := form.File["attachments"]
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Message requires text or an attachment"})
		return
	}

	message := models.IssueMessage{
		IssueID:    issue.ID,
		SenderID:   account.ID,
		SenderRole: account.Role,
		SenderName: account.FullName,
		Text:       text,
	}
	if err := s.db.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store message"})
		return
	}
	for _, file := range files {
		attachment := models.IssueAttachment{
			MessageID: message.ID,
			FileName:  file.Filename,
			FileURL:   fmt.Sprintf("/files/issues/%d/%s", issue.ID, file.Filename),
			MimeType:  file.Header.Get("Content-Type"),
			SizeBytes: file.Size,
		}
		s.db.Create(&attachment)
		message.Attachments = append(message.Attachments, attachment)
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}
