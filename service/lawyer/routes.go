package lawyer

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/lawyers", h.GetLawyers).Methods("GET")
	router.HandleFunc("/lawyers/specialties", h.GetSpecialties).Methods("GET")
	router.HandleFunc("/lawyers/{id}", h.GetLawyer).Methods("GET")
	router.HandleFunc("/lawyers/{id}", utils.AuthMiddleware(h.UpdateLawyer)).Methods("PUT")
	router.HandleFunc("/lawyers/{id}/reviews", h.GetReviews).Methods("GET")
	router.HandleFunc("/lawyers/{id}/reviews", utils.AuthMiddleware(h.CreateReview)).Methods("POST")
}

// GetLawyers lists the lawyer directory, filterable by specialty, location
// and a free-text search over name and specialty.
func (h *Handler) GetLawyers(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Lawyer{}).Preload("User")

	if specialty := r.URL.Query().Get("specialty"); specialty != "" {
		query = query.Where("LOWER(specialty) = ?", strings.ToLower(specialty))
	}
	if location := r.URL.Query().Get("location"); location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN users ON users.id = lawyers.user_id").
			Where("LOWER(users.name) LIKE ? OR LOWER(lawyers.specialty) LIKE ?", like, like)
	}
	if verified := r.URL.Query().Get("verified"); verified == "true" {
		query = query.Where("verified = ?", true)
	}

	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}

	var lawyers []models.Lawyer
	if err := query.Order("average_rating DESC, total_reviews DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&lawyers).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(lawyers), lawyers)
}

func (h *Handler) GetSpecialties(w http.ResponseWriter, r *http.Request) {
	var specialties []string
	if err := h.db.Model(&models.Lawyer{}).
		Where("specialty <> ''").
		Distinct("specialty").
		Order("specialty ASC").
		Pluck("specialty", &specialties).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(specialties), specialties)
}

func (h *Handler) GetLawyer(w http.ResponseWriter, r *http.Request) {
	lawyerID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid lawyer ID"), "")
		return
	}

	var lawyer models.Lawyer
	if err := h.db.Preload("User").Preload("Reviews").Preload("Reviews.User").
		First(&lawyer, lawyerID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Lawyer"), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, lawyer, "")
}

// UpdateLawyer lets a lawyer edit their own directory profile.
func (h *Handler) UpdateLawyer(w http.ResponseWriter, r *http.Request) {
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

	var lawyer models.Lawyer
	if err := h.db.First(&lawyer, lawyerID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Lawyer"), "")
		return
	}
	if lawyer.UserID != userID {
		utils.WriteError(w, models.NewAuthorizationError("Not authorized to update this profile"), "")
		return
	}

	var req struct {
		Specialty       *string  `json:"specialty"`
		Bio             *string  `json:"bio"`
		Location        *string  `json:"location"`
		ConsultationFee *float64 `json:"consultation_fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	if req.Specialty != nil {
		lawyer.Specialty = *req.Specialty
	}
	if req.Bio != nil {
		lawyer.Bio = *req.Bio
	}
	if req.Location != nil {
		lawyer.Location = *req.Location
	}
	if req.ConsultationFee != nil {
		if *req.ConsultationFee < 0 {
			utils.WriteError(w, models.NewValidationError("Consultation fee cannot be negative"), "")
			return
		}
		lawyer.ConsultationFee = *req.ConsultationFee
	}

	if err := h.db.Save(&lawyer).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, lawyer, "Profile updated")
}

func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request) {
	lawyerID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid lawyer ID"), "")
		return
	}

	var reviews []models.Review
	if err := h.db.Where("lawyer_id = ?", lawyerID).
		Preload("User").
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(reviews), reviews)
}

// CreateReview adds a review from a client who has completed a consultation
// with the lawyer, then recomputes the cached rating aggregate.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		Rating  float64 `json:"rating"`
		Comment string  `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		utils.WriteError(w, models.NewValidationError("Rating must be between 1 and 5"), "")
		return
	}

	var lawyer models.Lawyer
	if err := h.db.First(&lawyer, lawyerID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Lawyer"), "")
		return
	}

	var completed int64
	if err := h.db.Model(&models.Consultation{}).
		Where("lawyer_id = ? AND client_id = ? AND status = ?", lawyerID, userID, models.ConsultationCompleted).
		Count(&completed).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if completed == 0 {
		utils.WriteError(w, models.NewInvalidStateError("Only clients with a completed consultation can leave a review"), "")
		return
	}

	var existing int64
	if err := h.db.Model(&models.Review{}).
		Where("lawyer_id = ? AND user_id = ?", lawyerID, userID).
		Count(&existing).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if existing > 0 {
		utils.WriteError(w, models.NewDuplicateActionError("You have already reviewed this lawyer"), "")
		return
	}

	review := models.Review{
		UserID:   userID,
		LawyerID: lawyerID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}

	tx := h.db.Begin()

	if err := tx.Create(&review).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	var avg float64
	var count int64
	if err := tx.Model(&models.Review{}).Where("lawyer_id = ?", lawyerID).Count(&count).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}
	if err := tx.Model(&models.Review{}).Where("lawyer_id = ?", lawyerID).
		Select("COALESCE(AVG(rating), 0)").Scan(&avg).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	if err := tx.Model(&models.Lawyer{}).Where("id = ?", lawyerID).Updates(map[string]interface{}{
		"average_rating": avg,
		"total_reviews":  count,
	}).Error; err != nil {
		tx.Rollback()
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	if err := tx.Commit().Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, review, "Review submitted")
}

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
