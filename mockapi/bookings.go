package mockapi

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"servigo-client/models"
)

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// handleUserBookings lists the caller's own bookings.
func (s *Server) handleUserBookings(c *gin.Context) {
	account := currentAccount(c)
	var bookings []models.Booking
	if err := s.db.Preload("Servicer").Where("user_id = ?", account.ID).
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// handleUserBooking returns one booking owned by the caller, including the
// completion OTP only while the job is in progress (the user never sees the
// code itself, just its policy fields).
func (s *Server) handleUserBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	if err := s.db.Preload("Servicer").Preload("User").
		Where("id = ? AND user_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}
	if booking.Status == models.BookingStatusInProgress {
		var otp models.CompletionOTP
		if err := s.db.Where("booking_id = ?", booking.ID).First(&otp).Error; err == nil {
			otp.Code = "" // the user receives the code out-of-band only
			booking.CompletionOTP = &otp
		}
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// handleServicerServices lists jobs assigned to the servicer.
func (s *Server) handleServicerServices(c *gin.Context) {
	account := currentAccount(c)
	var bookings []models.Booking
	if err := s.db.Preload("User").Where("servicer_id = ?", account.ID).
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load services"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (s *Server) handleServicerService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	if err := s.db.Preload("User").
		Where("id = ? AND servicer_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (s *Server) handleAdminBookings(c *gin.Context) {
	var bookings []models.Booking
	if err := s.db.Preload("User").Preload("Servicer").
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (s *Server) handleAdminBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var booking models.Booking
	if err := s.db.Preload("User").Preload("Servicer").First(&booking, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// handleAcceptService transitions pending→accepted.
func (s *Server) handleAcceptService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	if err := s.db.Where("id = ? AND servicer_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service not found"})
		return
	}
	if booking.Status != models.BookingStatusPending {
		c.JSON(http.StatusConflict, gin.H{"detail": "Booking can only be accepted while pending"})
		return
	}
	booking.Status = models.BookingStatusAccepted
	if err := s.db.Save(&booking).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update booking"})
		return
	}
	s.notify(booking.UserID, "Booking accepted",
		fmt.Sprintf("Your booking %s was accepted", booking.BookingNumber), "booking_accepted")
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// handleCancelBooking cancels from pending/accepted only.
func (s *Server) handleCancelBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	query := s.db.Where("id = ?", id)
	switch account.Role {
	case models.RoleUser:
		query = query.Where("user_id = ?", account.ID)
	case models.RoleServicer:
		query = query.Where("servicer_id = ?", account.ID)
	}
	if err := query.First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}
	if !booking.CanCancel() {
		c.JSON(http.StatusConflict, gin.H{"detail": "Booking can no longer be cancelled"})
		return
	}
	booking.Status = models.BookingStatusCancelled
	if err := s.db.Save(&booking).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// handleStartService transitions accepted→in_progress and generates the
// completion OTP. The code is returned once here for the servicer to share.
func (s *Server) handleStartService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	if err := s.db.Where("id = ? AND servicer_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service not found"})
		return
	}
	if !booking.CanStart() {
		c.JSON(http.StatusConflict, gin.H{"detail": "Service can only be started from accepted"})
		return
	}

	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate completion code"})
		return
	}
	otp := models.CompletionOTP{
		BookingID: booking.ID,
		Code:      code,
		Length:    s.cfg.OTPLength,
		ExpiresAt: time.Now().Add(s.cfg.OTPExpiry),
	}
	// A restarted job reuses the row; one code per booking.
	s.db.Where("booking_id = ?", booking.ID).Delete(&models.CompletionOTP{})
	if err := s.db.Create(&otp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store completion code"})
		return
	}

	booking.Status = models.BookingStatusInProgress
	if err := s.db.Save(&booking).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update booking"})
		return
	}

	s.notify(booking.UserID, "Service started",
		fmt.Sprintf("Work on booking %s has started", booking.BookingNumber), "booking_started")
	log.Printf("🔐 Completion code generated for booking %d", booking.ID)

	c.JSON(http.StatusOK, gin.H{
		"booking":        booking,
		"completion_otp": otp,
	})
}

// handleCompletionOTP is the idempotent servicer-side read of the current code.
func (s *Server) handleCompletionOTP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	otp, errDetail, status := s.activeOTP(id, account.ID)
	if otp == nil {
		c.JSON(status, gin.H{"detail": errDetail})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completion_otp": otp})
}

// handleResendOTP re-delivers the existing code through the servicer's
// notification feed. It never regenerates.
func (s *Server) handleResendOTP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	otp, errDetail, status := s.activeOTP(id, account.ID)
	if otp == nil {
		c.JSON(status, gin.H{"detail": errDetail})
		return
	}
	s.notify(account.ID, "Completion code",
		fmt.Sprintf("Completion code for booking %d: %s", id, otp.Code), "otp_shared")
	c.JSON(http.StatusOK, gin.H{"message": "Completion code re-sent to your notifications"})
}

// activeOTP loads the unused code for a booking owned by servicerID.
func (s *Server) activeOTP(bookingID, servicerID uint) (*models.CompletionOTP, string, int) {
	var booking models.Booking
	if err := s.db.Where("id = ? AND servicer_id = ?", bookingID, servicerID).First(&booking).Error; err != nil {
		return nil, "Service not found", http.StatusNotFound
	}
	if booking.Status != models.BookingStatusInProgress {
		return nil, "Service has not been started", http.StatusConflict
	}
	var otp models.CompletionOTP
	if err := s.db.Where("booking_id = ? AND is_used = ?", bookingID, false).First(&otp).Error; err != nil {
		return nil, "No completion code on record", http.StatusNotFound
	}
	return &otp, "", http.StatusOK
}

// handleVerifyAndComplete validates the user's code and atomically flips the
// booking to completed, releasing payment.
func (s *Server) handleVerifyAndComplete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)
	submitted := c.PostForm("otp")

	var booking models.Booking
	if err := s.db.Where("id = ? AND user_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}
	if booking.Status != models.BookingStatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"detail": "Booking is not in progress"})
		return
	}

	var otp models.CompletionOTP
	if err := s.db.Where("booking_id = ? AND is_used = ?", booking.ID, false).First(&otp).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "No completion code on record"})
		return
	}
	if otp.Expired() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "OTP expired"})
		return
	}
	if submitted != otp.Code {
		otp.Attempts++
		s.db.Save(&otp)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid OTP"})
		return
	}

	now := time.Now()
	otp.IsUsed = true
	otp.VerifiedAt = &now
	booking.Status = models.BookingStatusCompleted
	booking.PaymentStatus = "paid"

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&otp).Error; err != nil {
			return err
		}
		return tx.Save(&booking).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to complete booking"})
		return
	}

	if booking.ServicerID != nil {
		s.notify(*booking.ServicerID, "Job completed",
			fmt.Sprintf("Booking %s was confirmed complete and payment released", booking.BookingNumber),
			"booking_completed")
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "message": "Booking completed"})
}

// handleRequestCompletionOTP nudges the servicer to share the code.
// Fire-and-forget; no code in the response.
func (s *Server) handleRequestCompletionOTP(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)

	var booking models.Booking
	if err := s.db.Where("id = ? AND user_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Booking not found"})
		return
	}
	if booking.ServicerID == nil || booking.Status != models.BookingStatusInProgress {
		c.JSON(http.StatusConflict, gin.H{"detail": "Booking is not in progress"})
		return
	}
	s.notify(*booking.ServicerID, "Completion code requested",
		fmt.Sprintf("The customer asks you to share the completion code for booking %s", booking.BookingNumber),
		"otp_requested")
	c.JSON(http.StatusOK, gin.H{"message": "Servicer notified"})
}

// generateCode produces a uniformly random numeric code of the given length.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
