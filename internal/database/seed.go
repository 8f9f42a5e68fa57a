package database

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/radical0coder/kafna/internal/models"
	"github.com/radical0coder/kafna/internal/utils"
)

// EnsureSuperuser creates the bootstrap staff account from configuration if it
// does not exist yet. A blank phone or password disables bootstrapping.
func EnsureSuperuser(conn *gorm.DB, phone, password string) error {
	if phone == "" || password == "" {
		return nil
	}

	var existing models.User
	err := conn.Where("phone_number = ?", phone).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	user := models.User{
		PhoneNumber:  phone,
		FullName:     "Administrator",
		IsStaff:      true,
		IsSuperuser:  true,
		PasswordHash: hash,
	}
	if err := conn.Create(&user).Error; err != nil {
		return err
	}

	log.Printf("Bootstrap superuser created for %s", phone)
	return nil
}
