package notification

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", utils.AuthMiddleware(h.RegisterDevice)).Methods("POST")
	router.HandleFunc("/devices/{token}", utils.AuthMiddleware(h.DeleteDevice)).Methods("DELETE")
	router.HandleFunc("/users/me/notifications", utils.AuthMiddleware(h.GetHistory)).Methods("GET")
}

// RegisterDevice stores an Expo push token for the authenticated user.
// Re-registering an existing token refreshes its metadata.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	var req struct {
		Token      string `json:"token"`
		DeviceType string `json:"device_type"`
		DeviceName string `json:"device_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		utils.WriteError(w, models.NewValidationError("Token is required"), "")
		return
	}
	if _, err := expo.NewExponentPushToken(req.Token); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid Expo push token format"), "")
		return
	}

	var device models.Device
	result := h.service.db.Where("token = ? AND user_id = ?", req.Token, userID).First(&device)
	if result.Error == nil {
		device.UpdatedAt = time.Now()
		device.DeviceType = req.DeviceType
		device.DeviceName = req.DeviceName
		if err := h.service.db.Save(&device).Error; err != nil {
			utils.WriteError(w, models.NewInternalError(err), "")
			return
		}
	} else {
		device = models.Device{
			UserID:     userID,
			Token:      req.Token,
			DeviceType: req.DeviceType,
			DeviceName: req.DeviceName,
		}
		if err := h.service.db.Create(&device).Error; err != nil {
			utils.WriteError(w, models.NewInternalError(err), "")
			return
		}
	}

	utils.WriteSuccess(w, http.StatusOK, device, "Device registered successfully")
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	token := mux.Vars(r)["token"]
	result := h.service.db.Where("token = ? AND user_id = ?", token, userID).Delete(&models.Device{})
	if result.Error != nil {
		utils.WriteError(w, models.NewInternalError(result.Error), "")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, models.NewNotFoundError("Device"), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "Device deleted successfully")
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	var history []models.NotificationHistory
	if err := h.service.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&history).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(history), history)
}
