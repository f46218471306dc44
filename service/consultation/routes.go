package consultation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
)

// Pusher delivers a push notification to a user's registered devices.
// Implemented by the notification service; delivery failures are its problem.
type Pusher interface {
	NotifyUser(userID uint, title, body string)
}

type noopPusher struct{}

func (noopPusher) NotifyUser(uint, string, string) {}

type Handler struct {
	engine *Engine
	pusher Pusher
}

func NewHandler(engine *Engine, pusher Pusher) *Handler {
	if pusher == nil {
		pusher = noopPusher{}
	}
	return &Handler{engine: engine, pusher: pusher}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/lawyers/{id}/consultations", utils.AuthMiddleware(h.ScheduleConsultation)).Methods("POST")
	router.HandleFunc("/lawyers/{id}/consultations", utils.AuthMiddleware(h.ListLawyerConsultations)).Methods("GET")
	router.HandleFunc("/consultations/{id}/status", utils.AuthMiddleware(h.UpdateConsultationStatus)).Methods("PUT")
	router.HandleFunc("/consultations/{id}/reschedule", utils.AuthMiddleware(h.RescheduleConsultation)).Methods("PUT")
	router.HandleFunc("/consultations/{id}", utils.AuthMiddleware(h.CancelConsultation)).Methods("DELETE")
	router.HandleFunc("/consultations/{id}/initialize-payment", utils.AuthMiddleware(h.InitializePayment)).Methods("POST")
	router.HandleFunc("/consultations/webhook", h.HandlePaystackWebhook).Methods("POST")

	router.HandleFunc("/users/me/consultations", utils.AuthMiddleware(h.ListMyConsultations)).Methods("GET")
	router.HandleFunc("/users/me/consultations/unread-count", utils.AuthMiddleware(h.GetUnreadCount)).Methods("GET")
	router.HandleFunc("/users/me/consultations/mark-read", utils.AuthMiddleware(h.MarkAllRead)).Methods("PUT")
}

type scheduleRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Type  string `json:"type"`
	Notes string `json:"notes"`
}

func (h *Handler) ScheduleConsultation(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	lawyerID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid lawyer ID"), "")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Date must be in YYYY-MM-DD format"), "")
		return
	}

	consultation, err := h.engine.Schedule(userID, lawyerID, date, req.Time, req.Type, req.Notes)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, consultation, "Consultation requested")
}

func (h *Handler) ListLawyerConsultations(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	lawyerID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid lawyer ID"), "")
		return
	}

	views, err := h.engine.ListForLawyer(lawyerID, userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteList(w, len(views), views)
}

func (h *Handler) ListMyConsultations(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	views, err := h.engine.ListForClient(userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteList(w, len(views), views)
}

func (h *Handler) UpdateConsultationStatus(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	consultation, err := h.engine.UpdateStatus(consultationID, userID, req.Status)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	if consultation.Status == models.ConsultationAccepted {
		h.pusher.NotifyUser(consultation.ClientID, "Consultation accepted",
			fmt.Sprintf("Your consultation on %s at %s has been accepted.",
				consultation.Date.Format("Jan 2, 2006"), consultation.Time))
	}

	utils.WriteSuccess(w, http.StatusOK, consultation, "Consultation updated")
}

func (h *Handler) CancelConsultation(w http.ResponseWriter, r *http.Request) {
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

	consultation, deleted, err := h.engine.Cancel(consultationID, userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	if !deleted {
		if consultation.Lawyer != nil && consultation.Lawyer.UserID == userID {
			h.pusher.NotifyUser(consultation.ClientID, "Consultation cancelled",
				"Your consultation has been cancelled by the lawyer.")
		} else if consultation.Lawyer != nil {
			h.pusher.NotifyUser(consultation.Lawyer.UserID, "Consultation cancelled",
				"A client has cancelled a consultation.")
		}
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "Consultation cancelled")
}

type rescheduleRequestBody struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

func (h *Handler) RescheduleConsultation(w http.ResponseWriter, r *http.Request) {
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

	var req rescheduleRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Date must be in YYYY-MM-DD format"), "")
		return
	}

	consultation, err := h.engine.Reschedule(consultationID, userID, date, req.Time, req.Message)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	if consultation.Lawyer != nil && consultation.Lawyer.UserID == userID {
		h.pusher.NotifyUser(consultation.ClientID, "Consultation rescheduled",
			fmt.Sprintf("Your consultation has been moved to %s at %s.",
				consultation.Date.Format("Jan 2, 2006"), consultation.Time))
	} else if consultation.Lawyer != nil {
		h.pusher.NotifyUser(consultation.Lawyer.UserID, "Reschedule requested",
			fmt.Sprintf("A client requested to move a consultation to %s at %s.",
				consultation.Date.Format("Jan 2, 2006"), consultation.Time))
	}

	utils.WriteSuccess(w, http.StatusOK, consultation, "Consultation rescheduled")
}

func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	count, err := h.engine.UnreadCountForClient(userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]int64{"unread": count}, "")
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	if err := h.engine.MarkAllReadForClient(userID); err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "All consultations marked as read")
}

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
