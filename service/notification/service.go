package notification

import (
	"fmt"
	"log"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// Service sends Expo push notifications to a user's registered devices and
// records each attempt in the notification history.
type Service struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

// NotifyUser delivers to every device the user has registered. Delivery is
// best-effort; failures are logged, never surfaced to the caller.
func (s *Service) NotifyUser(userID uint, title, body string) {
	var devices []models.Device
	if err := s.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		log.Printf("Error retrieving devices for user %d: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, device := range devices {
		tokens = append(tokens, device.Token)
	}

	err := s.publish(tokens, title, body)
	status := "sent"
	if err != nil {
		status = "failed"
		log.Printf("Error sending push to user %d: %v", userID, err)
	}

	history := models.NotificationHistory{
		UserID: userID,
		Title:  title,
		Body:   body,
		Status: status,
	}
	if dbErr := s.db.Create(&history).Error; dbErr != nil {
		log.Printf("Error creating notification history: %v", dbErr)
	}
}

func (s *Service) publish(tokenStrings []string, title, body string) error {
	var validTokens []expo.ExponentPushToken
	var invalidTokens []string

	for _, tokenString := range tokenStrings {
		pushToken, err := expo.NewExponentPushToken(tokenString)
		if err != nil {
			log.Printf("Invalid push token format %s: %v", tokenString, err)
			invalidTokens = append(invalidTokens, tokenString)
			continue
		}
		validTokens = append(validTokens, pushToken)
	}

	if len(invalidTokens) > 0 {
		s.cleanupInvalidTokens(invalidTokens)
	}
	if len(validTokens) == 0 {
		return fmt.Errorf("no valid push tokens found")
	}

	message := &expo.PushMessage{
		To:       validTokens,
		Title:    title,
		Body:     body,
		Sound:    "default",
		Priority: expo.DefaultPriority,
	}

	response, err := s.expoClient.Publish(message)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %v", err)
	}
	if validationErr := response.ValidateResponse(); validationErr != nil {
		return fmt.Errorf("notification validation failed: %v", validationErr)
	}
	return nil
}

func (s *Service) cleanupInvalidTokens(tokens []string) {
	for _, token := range tokens {
		if err := s.db.Where("token = ?", token).Delete(&models.Device{}).Error; err != nil {
			log.Printf("Error cleaning up invalid token %s: %v", token, err)
		}
	}
}
