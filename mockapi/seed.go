package mockapi

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"servigo-client/models"
)

// Seed inserts a demo user, servicer and admin plus a few bookings so the CLI
// has something to act on. Idempotent: a populated store is left alone.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Account{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash := func(pw string) string {
		h, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		return string(h)
	}
	approved := "approved"

	user := models.Account{
		FullName:     "Dana Customer",
		Email:        "user@example.com",
		PhoneNumber:  "+10000000001",
		PasswordHash: hash("password"),
		Role:         models.RoleUser,
	}
	servicer := models.Account{
		FullName:           "Sam Servicer",
		Email:              "servicer@example.com",
		PhoneNumber:        "+10000000002",
		PasswordHash:       hash("password"),
		Role:               models.RoleServicer,
		VerificationStatus: &approved,
	}
	admin := models.Account{
		FullName:     "Alex Admin",
		Email:        "admin@example.com",
		PhoneNumber:  "+10000000003",
		PasswordHash: hash("password"),
		Role:         models.RoleAdmin,
	}
	for _, account := range []*models.Account{&user, &servicer, &admin} {
		if err := db.Create(account).Error; err != nil {
			return fmt.Errorf("seed account %s: %w", account.Email, err)
		}
	}

	lat, lng := 40.71280, -74.00600
	bookings := []models.Booking{
		{
			BookingNumber: "BK-1001",
			UserID:        user.ID,
			ServicerID:    &servicer.ID,
			Status:        models.BookingStatusAccepted,
			ServiceType:   "plumbing",
			Address:       "170 William St, New York",
			LocationLat:   &lat,
			LocationLng:   &lng,
			Date:          time.Now().Add(2 * time.Hour),
			Time:          "14:00",
			Amount:        120.00,
			PaymentMethod: "card",
		},
		{
			BookingNumber: "BK-1002",
			UserID:        user.ID,
			Status:        models.BookingStatusPending,
			ServiceType:   "electrical",
			Address:       "22 Cortlandt St, New York",
			Date:          time.Now().Add(48 * time.Hour),
			Time:          "09:30",
			Amount:        85.50,
			PaymentMethod: "cash",
		},
	}
	for i := range bookings {
		if err := db.Create(&bookings[i]).Error; err != nil {
			return fmt.Errorf("seed booking %s: %w", bookings[i].BookingNumber, err)
		}
	}

	log.Println("✅ Seeded demo accounts (user/servicer/admin @example.com, password \"password\")")
	return nil
}
