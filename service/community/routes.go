package community

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/legalconnect/legalconnect-server/cmd/utils"
	"gorm.io/gorm"
)

type TopicHandler struct {
	engine   *Engine
	notifier Notifier
}

func NewTopicHandler(db *gorm.DB, notifier Notifier) *TopicHandler {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &TopicHandler{engine: NewEngine(db), notifier: notifier}
}

func (h *TopicHandler) RegisterRoutes(router *mux.Router) {
	// Topic routes
	router.HandleFunc("/community/topics", h.GetTopics).Methods("GET")
	router.HandleFunc("/community/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/community/topics", utils.AuthMiddleware(h.CreateTopic)).Methods("POST")
	router.HandleFunc("/community/topics/{id}", utils.OptionalAuthMiddleware(h.GetTopic)).Methods("GET")

	// Reply routes
	router.HandleFunc("/community/topics/{id}/replies", utils.AuthMiddleware(h.AddReply)).Methods("POST")

	// Vote routes
	router.HandleFunc("/community/topics/{id}/upvote", utils.AuthMiddleware(h.UpvoteTopic)).Methods("PUT")
	router.HandleFunc("/community/topics/{id}/downvote", utils.AuthMiddleware(h.DownvoteTopic)).Methods("PUT")
	router.HandleFunc("/community/topics/{id}/replies/{replyId}/upvote", utils.AuthMiddleware(h.UpvoteReply)).Methods("PUT")
	router.HandleFunc("/community/topics/{id}/replies/{replyId}/downvote", utils.AuthMiddleware(h.DownvoteReply)).Methods("PUT")

	// Report routes
	router.HandleFunc("/community/topics/{id}/report", utils.AuthMiddleware(h.ReportTopic)).Methods("POST")
	router.HandleFunc("/community/topics/{id}/replies/{replyId}/report", utils.AuthMiddleware(h.ReportReply)).Methods("POST")

	// Saved / authored / commented views
	router.HandleFunc("/community/topics/{id}/save", utils.AuthMiddleware(h.SaveTopic)).Methods("POST")
	router.HandleFunc("/community/topics/{id}/save", utils.AuthMiddleware(h.UnsaveTopic)).Methods("DELETE")
	router.HandleFunc("/users/me/topics/saved", utils.AuthMiddleware(h.GetSavedTopics)).Methods("GET")
	router.HandleFunc("/users/me/topics/authored", utils.AuthMiddleware(h.GetAuthoredTopics)).Methods("GET")
	router.HandleFunc("/users/me/topics/commented", utils.AuthMiddleware(h.GetCommentedTopics)).Methods("GET")
}

func (h *TopicHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	summaries, _, err := h.engine.ListTopics(TopicFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Page:     page,
	})
	if err != nil {
		utils.WriteError(w, err, "Server error retrieving topics")
		return
	}

	utils.WriteList(w, len(summaries), summaries)
}

// GetCategories returns the fixed forum category set the SPA renders.
func (h *TopicHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories := []map[string]interface{}{
		{"name": "Housing & Tenant Issues", "icon": "fa-home", "topics": 523, "posts": 2100},
		{"name": "Family Law", "icon": "fa-user-friends", "topics": 412, "posts": 1800},
		{"name": "Employment Law", "icon": "fa-briefcase", "topics": 385, "posts": 1500},
		{"name": "Small Claims", "icon": "fa-gavel", "topics": 247, "posts": 982},
	}
	utils.WriteSuccess(w, http.StatusOK, categories, "")
}

func (h *TopicHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	// Anonymous viewers get the detail without the per-user annotations.
	requestingUserID, _ := utils.GetUserIDFromContext(r.Context())

	detail, err := h.engine.GetTopicDetail(topicID, requestingUserID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, detail, "")
}

func (h *TopicHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Title     string `json:"title"`
		Category  string `json:"category"`
		Content   string `json:"content"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	summary, err := h.engine.CreateTopic(userID, body.Title, body.Category, body.Content, body.Anonymous)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	h.notifier.Emit("new-topic", summary)
	utils.WriteSuccess(w, http.StatusCreated, summary, "")
}

func (h *TopicHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	var body struct {
		Content   string `json:"content"`
		ParentID  *uint  `json:"parentId"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid request body"), "")
		return
	}

	reply, err := h.engine.AddReply(topicID, userID, body.Content, body.ParentID, body.Anonymous)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	h.notifier.EmitToTopic(topicID, "new-reply", map[string]interface{}{
		"topicId":  topicID,
		"reply":    reply,
		"parentId": body.ParentID,
	})

	utils.WriteSuccess(w, http.StatusOK, reply, "")
}

func (h *TopicHandler) UpvoteTopic(w http.ResponseWriter, r *http.Request) {
	h.voteTopic(w, r, 1)
}

func (h *TopicHandler) DownvoteTopic(w http.ResponseWriter, r *http.Request) {
	h.voteTopic(w, r, -1)
}

func (h *TopicHandler) voteTopic(w http.ResponseWriter, r *http.Request, value int) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	score, err := h.engine.ToggleTopicVote(topicID, userID, value)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	h.notifier.Emit("topic-vote-update", map[string]interface{}{
		"topicId":   topicID,
		"voteScore": score,
	})

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"voteScore": score,
	}, "Vote registered")
}

func (h *TopicHandler) UpvoteReply(w http.ResponseWriter, r *http.Request) {
	h.voteReply(w, r, 1)
}

func (h *TopicHandler) DownvoteReply(w http.ResponseWriter, r *http.Request) {
	h.voteReply(w, r, -1)
}

func (h *TopicHandler) voteReply(w http.ResponseWriter, r *http.Request, value int) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}
	replyID, err := parseID(r, "replyId")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid reply ID"), "")
		return
	}

	score, err := h.engine.ToggleReplyVote(topicID, replyID, userID, value)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	h.notifier.EmitToTopic(topicID, "reply-vote-update", map[string]interface{}{
		"topicId":   topicID,
		"replyId":   replyID,
		"voteScore": score,
	})

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"voteScore": score,
	}, "Vote registered")
}

func (h *TopicHandler) ReportTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	count, err := h.engine.ReportTopic(topicID, userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"reports": count,
	}, "Topic reported")
}

func (h *TopicHandler) ReportReply(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}
	replyID, err := parseID(r, "replyId")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid reply ID"), "")
		return
	}

	count, err := h.engine.ReportReply(topicID, replyID, userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"reports": count,
	}, "Reply reported")
}

func (h *TopicHandler) SaveTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	if err := h.engine.SaveTopic(userID, topicID); err != nil {
		utils.WriteError(w, err, "")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, nil, "Topic saved")
}

func (h *TopicHandler) UnsaveTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	topicID, err := parseID(r, "id")
	if err != nil {
		utils.WriteError(w, models.NewValidationError("Invalid topic ID"), "")
		return
	}

	if err := h.engine.UnsaveTopic(userID, topicID); err != nil {
		utils.WriteError(w, err, "")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, nil, "Topic removed from saved")
}

func (h *TopicHandler) GetSavedTopics(w http.ResponseWriter, r *http.Request) {
	h.userTopicList(w, r, h.engine.ListSavedTopics)
}

func (h *TopicHandler) GetAuthoredTopics(w http.ResponseWriter, r *http.Request) {
	h.userTopicList(w, r, h.engine.ListTopicsAuthoredBy)
}

func (h *TopicHandler) GetCommentedTopics(w http.ResponseWriter, r *http.Request) {
	h.userTopicList(w, r, h.engine.ListTopicsCommentedOnBy)
}

func (h *TopicHandler) userTopicList(w http.ResponseWriter, r *http.Request, list func(uint) ([]TopicSummary, error)) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := list(userID)
	if err != nil {
		utils.WriteError(w, err, "")
		return
	}
	utils.WriteList(w, len(summaries), summaries)
}

func parseID(r *http.Request, key string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
