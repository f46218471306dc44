package resource

import (
	"net/http"
	"os"
	"path/filepath"
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
	router.HandleFunc("/resources", h.GetResources).Methods("GET")
	router.HandleFunc("/resources", utils.AuthMiddleware(h.CreateResource)).Methods("POST")
	router.HandleFunc("/resources/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/resources/{id}", h.GetResource).Methods("GET")
	router.HandleFunc("/resources/{id}", utils.AuthMiddleware(h.DeleteResource)).Methods("DELETE")
	router.HandleFunc("/resources/files/{filename}", h.ServeFile).Methods("GET")
}

// GetResources lists the legal resource library with type, category and
// free-text filters.
func (h *Handler) GetResources(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Resource{}).Preload("Author")

	if resourceType := r.URL.Query().Get("type"); resourceType != "" {
		query = query.Where("type = ?", resourceType)
	}
	if category := r.URL.Query().Get("category"); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", like, like, like)
	}

	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && ps > 0 && ps <= 100 {
		pageSize = ps
	}

	var resources []models.Resource
	if err := query.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&resources).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(resources), resources)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []string
	if err := h.db.Model(&models.Resource{}).
		Where("category <> ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteList(w, len(categories), categories)
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	resourceID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid resource ID"), "")
		return
	}

	var resource models.Resource
	if err := h.db.Preload("Author").First(&resource, resourceID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Resource"), "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, resource, "")
}

// CreateResource accepts a multipart form. Articles carry inline content;
// guides and templates carry a PDF upload.
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	if err := r.ParseMultipartForm(utils.MaxResourceSize); err != nil {
		utils.WriteError(w, models.NewValidationError("File too large or malformed form"), "")
		return
	}

	resource := models.Resource{
		UserID:      userID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Type:        r.FormValue("type"),
		Category:    r.FormValue("category"),
		Content:     r.FormValue("content"),
		Tags:        r.FormValue("tags"),
	}

	if strings.TrimSpace(resource.Title) == "" || strings.TrimSpace(resource.Type) == "" || strings.TrimSpace(resource.Category) == "" {
		utils.WriteError(w, models.NewValidationError("Title, type and category are required"), "")
		return
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		filePath, err := utils.SaveResourceFile(file, header)
		if err != nil {
			utils.WriteError(w, err, "")
			return
		}
		resource.FilePath = filePath
	} else if strings.TrimSpace(resource.Content) == "" {
		utils.WriteError(w, models.NewValidationError("A file or inline content is required"), "")
		return
	}

	if err := h.db.Create(&resource).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, resource, "Resource created")
}

// DeleteResource removes a resource and its uploaded file. Only the author
// or an admin may delete.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, models.NewAuthorizationError("Authentication required"), "")
		return
	}

	resourceID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid resource ID"), "")
		return
	}

	var resource models.Resource
	if err := h.db.First(&resource, resourceID).Error; err != nil {
		utils.WriteError(w, models.NewNotFoundError("Resource"), "")
		return
	}

	if resource.UserID != userID {
		var user models.User
		if err := h.db.First(&user, userID).Error; err != nil || user.Role != "admin" {
			utils.WriteError(w, models.NewAuthorizationError("Not authorized to delete this resource"), "")
			return
		}
	}

	if err := h.db.Delete(&resource).Error; err != nil {
		utils.WriteError(w, models.NewInternalError(err), "")
		return
	}

	if resource.FilePath != "" {
		if err := utils.DeleteUpload(resource.FilePath); err != nil {
			// The record is gone; a stray file is not worth failing the request.
			utils.WriteSuccess(w, http.StatusOK, nil, "Resource deleted")
			return
		}
	}

	utils.WriteSuccess(w, http.StatusOK, nil, "Resource deleted")
}

func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	if filepath.Clean(filename) != filename || strings.Contains(filename, "..") {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	filePath := filepath.Join(utils.ResourcePath, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, filePath)
}

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
