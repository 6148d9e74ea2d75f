package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"servigo-client/models"
	"servigo-client/utils"
)

const defaultHistoryLimit = 100

func parseCoordinateForm(c *gin.Context) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(c.PostForm("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.PostForm("lng"), 64)
	if errLat != nil || errLng != nil || !utils.IsLocationValid(lat, lng) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid location coordinates"})
		return 0, 0, false
	}
	return lat, lng, true
}

// handleStartTracking creates (or reactivates) the tracking session with the
// servicer's first position fix.
func (s *Server) handleStartTracking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)
	lat, lng, ok := parseCoordinateForm(c)
	if !ok {
		return
	}

	var booking models.Booking
	if err := s.db.Where("id = ? AND servicer_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service not found"})
		return
	}
	if !booking.Trackable() {
		c.JSON(http.StatusConflict, gin.H{"detail": "Tracking is only available for accepted or in-progress bookings"})
		return
	}

	now := time.Now()
	var session models.TrackingSession
	err := s.db.Where("booking_id = ?", booking.ID).First(&session).Error
	if err != nil {
		session = models.TrackingSession{BookingID: booking.ID}
	}
	session.ServicerLat = lat
	session.ServicerLng = lng
	session.TrackingActive = true
	session.LastUpdate = &now
	if err := s.db.Save(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start tracking"})
		return
	}
	s.recordTrackPoint(booking.ID, lat, lng, now)

	c.JSON(http.StatusOK, gin.H{
		"message":  "Tracking started",
		"tracking": session,
	})
}

// handlePushPosition appends one periodic position update.
func (s *Server) handlePushPosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account := currentAccount(c)
	lat, lng, ok := parseCoordinateForm(c)
	if !ok {
		return
	}

	var booking models.Booking
	if err := s.db.Where("id = ? AND servicer_id = ?", id, account.ID).First(&booking).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service not found"})
		return
	}

	var session models.TrackingSession
	if err := s.db.Where("booking_id = ? AND tracking_active = ?", booking.ID, true).First(&session).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Tracking is not active for this booking"})
		return
	}

	now := time.Now()
	session.ServicerLat = lat
	session.ServicerLng = lng
	session.LastUpdate = &now
	// Arrival is inferred within 50 meters of the booking location.
	if booking.LocationLat != nil && booking.LocationLng != nil {
		distance := utils.HaversineDistance(lat, lng, *booking.LocationLat, *booking.LocationLng)
		session.ServicerArrived = distance <= 0.05
	}
	if err := s.db.Save(&session).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update position"})
		return
	}
	s.recordTrackPoint(booking.ID, lat, lng, now)

	c.JSON(http.StatusOK, gin.H{"message": "Position updated", "tracking": session})
}

// handleLiveTracking is the polled snapshot endpoint. Inactive tracking is a
// 200 with tracking_active=false, never an error.
func (s *Server) handleLiveTracking(c *gin.Context) {
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

	snapshot := models.TrackingSnapshot{BookingID: booking.ID}

	var session models.TrackingSession
	err := s.db.Where("booking_id = ?", booking.ID).First(&session).Error
	if err != nil || !session.TrackingActive || !booking.Trackable() {
		c.JSON(http.StatusOK, snapshot)
		return
	}

	snapshot.TrackingActive = true
	snapshot.ServicerArrived = session.ServicerArrived
	snapshot.ServicerLat = &session.ServicerLat
	snapshot.ServicerLng = &session.ServicerLng
	snapshot.UserLat = booking.LocationLat
	snapshot.UserLng = booking.LocationLng
	snapshot.LastUpdate = session.LastUpdate

	if booking.LocationLat != nil && booking.LocationLng != nil {
		distance := utils.HaversineDistance(
			session.ServicerLat, session.ServicerLng,
			*booking.LocationLat, *booking.LocationLng,
		)
		eta := utils.CalculateETA(
			utils.Location{Latitude: session.ServicerLat, Longitude: session.ServicerLng},
			utils.Location{Latitude: *booking.LocationLat, Longitude: *booking.LocationLng},
			30.0,
		)
		etaMinutes := int(eta.Minutes())
		snapshot.DistanceKm = &distance
		snapshot.ETAMinutes = &etaMinutes
	}

	c.JSON(http.StatusOK, snapshot)
}

// handleTrackingHistory returns the bounded route history, oldest first.
func (s *Server) handleTrackingHistory(c *gin.Context) {
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

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	var points []models.TrackPoint
	if err := s.db.Where("booking_id = ?", booking.ID).
		Order("recorded_at ASC").Limit(limit).Find(&points).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load tracking history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (s *Server) recordTrackPoint(bookingID uint, lat, lng float64, at time.Time) {
	point := models.TrackPoint{
		BookingID:  bookingID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: at,
	}
	s.db.Create(&point)
}
