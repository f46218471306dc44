package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalClients        int64   `json:"total_clients"`
	TotalLawyers        int64   `json:"total_lawyers"`
	VerifiedLawyers     int64   `json:"verified_lawyers"`
	TotalTopics         int64   `json:"total_topics"`
	TotalReplies        int64   `json:"total_replies"`
	TotalConsultations  int64   `json:"total_consultations"`
	PendingReports      int64   `json:"pending_reports"`
	TotalResources      int64   `json:"total_resources"`
	TotalIncome         float64 `json:"total_income"`
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("/stats", utils.AuthMiddleware(h.requireAdmin(h.GetDashboardStats))).Methods("GET")
	dashboardRouter.HandleFunc("/lawyers/{id}/verify", utils.AuthMiddleware(h.requireAdmin(h.VerifyLawyer))).Methods("POST")
	dashboardRouter.HandleFunc("/users/{id}", utils.AuthMiddleware(h.requireAdmin(h.DeleteUser))).Methods("DELETE")
	dashboardRouter.HandleFunc("/topics/{id}", utils.AuthMiddleware(h.requireAdmin(h.DeleteTopic))).Methods("DELETE")
	dashboardRouter.HandleFunc("/replies/{id}", utils.AuthMiddleware(h.requireAdmin(h.DeleteReply))).Methods("DELETE")
	dashboardRouter.HandleFunc("/reported-topics", utils.AuthMiddleware(h.requireAdmin(h.GetReportedTopics))).Methods("GET")
}

// requireAdmin gates a handler behind the admin role.
func (h *DashboardHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.GetUserIDFromContext(r.Context())
		if err != nil {
			utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
			return
		}

		var user models.User
		if err := h.db.First(&user, userID).Error; err != nil || user.Role != "admin" {
			utils.WriteError(w, models.NewAuthorizationError("Admin access required"), "")
			return
		}

		next(w, r)
	}
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	h.db.Model(&models.User{}).Where("role = ?", "client").Count(&stats.TotalClients)
	h.db.Model(&models.Lawyer{}).Count(&stats.TotalLawyers)
	h.db.Model(&models.Lawyer{}).Where("verified = ?", true).Count(&stats.VerifiedLawyers)
	h.db.Model(&models.Topic{}).Count(&stats.TotalTopics)
	h.db.Model(&models.Reply{}).Count(&stats.TotalReplies)
	h.db.Model(&models.Consultation{}).Count(&stats.TotalConsultations)
	h.db.Model(&models.TopicReport{}).Count(&stats.PendingReports)
	h.db.Model(&models.Resource{}).Count(&stats.TotalResources)

	income, err := h.fetchTotalIncome()
	if err != nil {
		// Paystack being down should not blank the whole dashboard.
		income = 0
	}
	stats.TotalIncome = income

	utils.WriteSuccess(w, http.StatusOK, stats, "")
}

func (h *DashboardHandler) fetchTotalIncome() (float64, error) {
	paystackURL := "https://api.paystack.co/transaction/totals"
	apiKey := os.Getenv("PAYSTACK_SECRET_KEY")

	req, err := http.NewRequest("GET", paystackURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var response struct {
		Status bool `json:"status"`
		Data   struct {
			TotalVolume float64 `json:"total_volume"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, err
	}
	if !response.Status {
		return 0, fmt.Errorf("failed to fetch income from Paystack")
	}

	return response.Data.TotalVolume / 100, nil
}

func (h *DashboardHandler) VerifyLawyer(w http.ResponseWriter, r *http.Request) {
	lawyerID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid lawyer ID"), "")
		return
	}

	var lawyer models.Lawyer
	if err := h.db.First(&lawyer, lawyerID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Lawyer"), "")
		return
	}

	lawyer.Verified = true
	if err := h.db.Save(&lawyer).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, lawyer, "Lawyer verified")
}

func (h *DashboardHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid user ID"), "")
		return
	}

	result := h.db.Delete(&models.User{}, userID)
	if result.Error != nil {
		utils.WriteError(w, models.NewInternalError(result.Error), "")
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteError(w, models.NewNotFoundError("User"), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "User deleted")
}

// DeleteTopic removes a topic and its dependents in one transaction so
// moderation never leaves orphaned replies or votes behind.
func (h *DashboardHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	var topic models.Topic
	if err := h.db.First(&topic, topicID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Topic"), "")
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("reply_id IN (?)",
		h.db.Model(&models.Reply{}).Select("id").Where("topic_id = ?", topicID)).
		Delete(&models.ReplyVote{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&models.Reply{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&models.TopicVote{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&models.TopicReport{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&models.SavedTopic{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Delete(&topic).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "Topic deleted")
}

func (h *DashboardHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	replyID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid reply ID"), "")
		return
	}

	var reply models.Reply
	if err := h.db.First(&reply, replyID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Reply"), "")
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("reply_id = ?", replyID).Delete(&models.ReplyVote{}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	// Children re-attach at the root on the next tree build.
	if err := tx.Model(&models.Reply{}).Where("parent_id = ?", replyID).
		UpdateColumn("parent_id", nil).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Delete(&reply).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "Reply deleted")
}

// GetReportedTopics lists topics with at least one report, most reported
// first, for the moderation queue.
func (h *DashboardHandler) GetReportedTopics(w http.ResponseWriter, r *http.Request) {
	type reportedTopic struct {
		TopicID     uint   `json:"topic_id"`
		Title       string `json:"title"`
		ReportCount int64  `json:"report_count"`
	}

	var reported []reportedTopic
	if err := h.db.Model(&models.TopicReport{}).
		Select("topic_reports.topic_id, topics.title, COUNT(topic_reports.id) AS report_count").
		Joins("JOIN topics ON topics.id = topic_reports.topic_id AND topics.deleted_at IS NULL").
		Group("topic_reports.topic_id, topics.title").
		Order("report_count DESC").
		Scan(&reported).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(reported), reported)
}

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
