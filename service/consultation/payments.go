package consultation

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
	"gorm.io/gorm"
)

const paystackInitializeURL = "https://api.paystack.co/transaction/initialize"

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string  `json:"reference"`
		Status    string  `json:"status"`
		Amount    float64 `json:"amount"`
	} `json:"data"`
}

// InitializePayment creates a Paystack transaction for the consultation fee
// and returns the authorization URL the client is redirected to.
func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	consultationID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid consultation ID"), "")
		return
	}

	tx := h.engine.db.Begin()

	var consultation models.Consultation
	if err := tx.Preload("Lawyer").First(&consultation, consultationID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, models.NewNotFoundError("Consultation"), "")
		} else {
			utils.WriteError(w, models.NewInternalError(err), "")
		}
		return
	}

	if consultation.ClientID != userID {
		tx.Rollback()
		utils.WriteError(w, models.NewAuthorizationError("Not authorized to pay for this consultation"), "")
		return
	}
	if consultation.Paid {
		tx.Rollback()
		utils.WriteError(w, models.NewInvalidStateError("Consultation is already paid"), "")
		return
	}
	if consultation.Lawyer == nil || consultation.Lawyer.ConsultationFee <= 0 {
		tx.Rollback()
		utils.WriteError(w, models.NewInvalidStateError("Lawyer has no consultation fee set"), "")
		return
	}

	var client models.User
	if err := tx.First(&client, userID).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewNotFoundError("User"), "")
		return
	}

	reference := fmt.Sprintf("CONS-%d-%d", consultation.ID, time.Now().Unix())

	initReq := map[string]interface{}{
		"email":     client.Email,
		"amount":    int64(consultation.Lawyer.ConsultationFee * 100),
		"reference": reference,
		"metadata": map[string]interface{}{
			"consultation_id": consultation.ID,
			"client_id":       userID,
			"lawyer_id":       consultation.LawyerID,
		},
	}

	payloadBytes, _ := json.Marshal(initReq)
	req, _ := http.NewRequest("POST", paystackInitializeURL, bytes.NewBuffer(payloadBytes))
	req.Header.Set("Authorization", "Bearer "+os.Getenv("PAYSTACK_SECRET_KEY"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "Error initializing payment")
		return
	}
	defer resp.Body.Close()

	var initResp struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "Error reading payment response")
		return
	}
	if !initResp.Status {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(fmt.Errorf("paystack rejected initialization")), "Error initializing payment")
		return
	}

	consultation.PaymentRef = reference
	if err := tx.Save(&consultation).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"authorization_url": initResp.Data.AuthorizationURL,
		"reference":         reference,
		"consultation_id":   consultation.ID,
	}, "")
}

// HandlePaystackWebhook marks the consultation paid on charge.success.
// Unknown references are acknowledged with 200 so Paystack stops retrying.
func (h *Handler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("X-Paystack-Signature")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	mac := hmac.New(sha512.New, []byte(os.Getenv("PAYSTACK_SECRET_KEY")))
	mac.Write(body)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expectedMAC)) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var payload paystackWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Error parsing webhook payload", http.StatusBadRequest)
		return
	}

	if payload.Event != "charge.success" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if !strings.HasPrefix(payload.Data.Reference, "CONS-") {
		log.Printf("Unknown payment reference: %s", payload.Data.Reference)
		w.WriteHeader(http.StatusOK)
		return
	}

	tx := h.engine.db.Begin()

	var consultation models.Consultation
	if err := tx.Where("payment_ref = ?", payload.Data.Reference).First(&consultation).Error; err != nil {
		tx.Rollback()
		log.Printf("Consultation not found for reference %s", payload.Data.Reference)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := tx.Model(&consultation).UpdateColumn("paid", true).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating consultation", http.StatusInternalServerError)
		return
	}

	transaction := models.Transaction{
		UserID:  consultation.ClientID,
		Amount:  payload.Data.Amount / 100,
		Method:  "Paystack",
		Purpose: fmt.Sprintf("Consultation #%d", consultation.ID),
	}
	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error recording transaction", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing webhook processing", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
