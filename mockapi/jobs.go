package mockapi

import (
	"log"
	"time"

	"gorm.io/gorm"

	"servigo-client/models"
)

// ExpirationJob invalidates completion codes past their expiry so a stale code
// can never complete a booking even if the verify path misses the check.
type ExpirationJob struct {
	db       *gorm.DB
	interval time.Duration
	stopChan chan bool
}

// NewExpirationJob creates the sweeper. interval<=0 means every 30 seconds.
func NewExpirationJob(db *gorm.DB, interval time.Duration) *ExpirationJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpirationJob{
		db:       db,
		interval: interval,
		stopChan: make(chan bool),
	}
}

// Start begins the expiration job
func (j *ExpirationJob) Start() {
	go j.run()
	log.Println("🚀 OTP expiration job started")
}

// Stop stops the expiration job
func (j *ExpirationJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 OTP expiration job stopped")
}

func (j *ExpirationJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweepExpiredCodes()
		case <-j.stopChan:
			return
		}
	}
}

// sweepExpiredCodes marks expired, unverified codes as used.
func (j *ExpirationJob) sweepExpiredCodes() {
	result := j.db.Model(&models.CompletionOTP{}).
		Where("is_used = ? AND expires_at <= ?", false, time.Now()).
		Update("is_used", true)

	if result.Error != nil {
		log.Printf("❌ Error sweeping expired completion codes: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("⏰ Invalidated %d expired completion codes", result.RowsAffected)
	}
}
