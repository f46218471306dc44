package community

import (
	"errors"
	"strings"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"gorm.io/gorm"
)

// Engine owns topic and reply semantics: tree mutation, one-vote-per-user
// toggling, reporting and save bookkeeping. Handlers stay thin on top of it.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

type TopicFilter struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

// ListTopics returns summaries, pinned first then newest first. Search is a
// case-insensitive substring match over title, content and category.
func (e *Engine) ListTopics(filter TopicFilter) ([]TopicSummary, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}

	query := e.db.Model(&models.Topic{}).Preload("User")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	query.Count(&total)

	var topics []*models.Topic
	if err := query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize).
		Order("pinned DESC, created_at DESC").Find(&topics).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	return e.summarize(topics), total, nil
}

// summarize shapes topics into summaries with their recursive reply counts.
// Counts come from one grouped query instead of a query per topic.
func (e *Engine) summarize(topics []*models.Topic) []TopicSummary {
	ids := make([]uint, 0, len(topics))
	for _, t := range topics {
		ids = append(ids, t.ID)
	}

	countByTopic := make(map[uint]int, len(ids))
	if len(ids) > 0 {
		var rows []struct {
			TopicID uint
			Total   int
		}
		e.db.Model(&models.Reply{}).
			Select("topic_id, COUNT(*) AS total").
			Where("topic_id IN ?", ids).
			Group("topic_id").
			Scan(&rows)
		for _, row := range rows {
			countByTopic[row.TopicID] = row.Total
		}
	}

	summaries := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		summaries = append(summaries, formatSummary(t, countByTopic[t.ID]))
	}
	return summaries
}

// GetTopicDetail returns the topic with its materialized reply forest and
// increments the view counter by exactly one. requestingUserID of zero means
// an anonymous caller; the reported/saved flags then stay false.
func (e *Engine) GetTopicDetail(topicID, requestingUserID uint) (*TopicDetail, error) {
	var topic models.Topic
	if err := e.db.Preload("User").First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Topic")
		}
		return nil, models.NewInternalError(err)
	}

	if err := e.db.Model(&models.Topic{}).Where("id = ?", topicID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	topic.Views++

	forest, userByID, err := e.loadForest(topicID)
	if err != nil {
		return nil, err
	}

	detail := &TopicDetail{
		ID:        topic.ID,
		Title:     topic.Title,
		Category:  topic.Category,
		Content:   topic.Content,
		Anonymous: topic.Anonymous,
		User:      formatAuthor(topic.User, topic.Anonymous),
		Replies:   make([]ReplyView, 0, len(forest)),
		Views:     topic.Views,
		VoteScore: topic.VoteScore,
		Pinned:    topic.Pinned,
		CreatedAt: topic.CreatedAt,
	}
	for _, root := range forest {
		detail.Replies = append(detail.Replies, formatReply(root, userByID))
	}

	if requestingUserID != 0 {
		var reported int64
		e.db.Model(&models.TopicReport{}).
			Where("topic_id = ? AND user_id = ?", topicID, requestingUserID).
			Count(&reported)
		detail.Reported = reported > 0

		var saved int64
		e.db.Model(&models.SavedTopic{}).
			Where("topic_id = ? AND user_id = ?", topicID, requestingUserID).
			Count(&saved)
		detail.Saved = saved > 0
	}

	return detail, nil
}

// loadForest loads a topic's replies in posting order, builds the tree and
// resolves every author that appears anywhere in it.
func (e *Engine) loadForest(topicID uint) ([]*models.Reply, map[uint]*models.User, error) {
	var replies []*models.Reply
	if err := e.db.Where("topic_id = ?", topicID).Order("id ASC").Find(&replies).Error; err != nil {
		return nil, nil, models.NewInternalError(err)
	}

	forest := BuildForest(replies)

	authorIDs := make(map[uint]struct{})
	CollectAuthorIDs(forest, authorIDs)

	userByID := make(map[uint]*models.User, len(authorIDs))
	if len(authorIDs) > 0 {
		ids := make([]uint, 0, len(authorIDs))
		for id := range authorIDs {
			ids = append(ids, id)
		}
		var users []*models.User
		if err := e.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, nil, models.NewInternalError(err)
		}
		for _, u := range users {
			userByID[u.ID] = u
		}
	}

	return forest, userByID, nil
}

func (e *Engine) CreateTopic(userID uint, title, category, content string, anonymous bool) (*TopicSummary, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(category) == "" || strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Title, category, and content are required")
	}

	topic := models.Topic{
		UserID:    userID,
		Title:     title,
		Category:  category,
		Content:   content,
		Anonymous: anonymous,
	}
	if err := e.db.Create(&topic).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	e.db.Preload("User").First(&topic, topic.ID)
	summary := formatSummary(&topic, 0)
	return &summary, nil
}

// AddReply appends a reply to the topic's forest, nested under parentID when
// given. The parent is resolved by depth-first search over the whole forest.
func (e *Engine) AddReply(topicID, userID uint, content string, parentID *uint, anonymous bool) (*ReplyView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Content is required")
	}

	var topic models.Topic
	if err := e.db.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Topic")
		}
		return nil, models.NewInternalError(err)
	}

	if parentID != nil {
		var replies []*models.Reply
		if err := e.db.Where("topic_id = ?", topicID).Order("id ASC").Find(&replies).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if FindReply(BuildForest(replies), *parentID) == nil {
			return nil, models.NewNotFoundError("Parent comment")
		}
	}

	reply := models.Reply{
		TopicID:   topicID,
		ParentID:  parentID,
		UserID:    userID,
		Content:   content,
		Anonymous: anonymous,
	}

	tx := e.db.Begin()
	if err := tx.Create(&reply).Error; err != nil {
		tx.Rollback()
		return nil, models.NewInternalError(err)
	}
	if err := tx.Model(&models.Topic{}).Where("id = ?", topicID).
		UpdateColumn("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
		tx.Rollback()
		return nil, models.NewInternalError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var author models.User
	userByID := map[uint]*models.User{}
	if err := e.db.First(&author, userID).Error; err == nil {
		userByID[author.ID] = &author
	}

	view := formatReply(&reply, userByID)
	return &view, nil
}

// ToggleTopicVote applies the toggle semantics for value +1 (up) or -1
// (down): same direction removes the vote, opposite direction displaces it.
// The vote score is recomputed from the vote rows inside the transaction.
func (e *Engine) ToggleTopicVote(topicID, userID uint, value int) (int, error) {
	var topic models.Topic
	if err := e.db.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Topic")
		}
		return 0, models.NewInternalError(err)
	}

	tx := e.db.Begin()

	var existing models.TopicVote
	err := tx.Where("topic_id = ? AND user_id = ?", topicID, userID).First(&existing).Error
	switch {
	case err == nil && existing.Value == value:
		// Toggle off.
		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	case err == nil:
		// Displace the opposite vote.
		existing.Value = value
		if err := tx.Save(&existing).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := models.TopicVote{TopicID: topicID, UserID: userID, Value: value}
		if err := tx.Create(&vote).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	default:
		tx.Rollback()
		return 0, models.NewInternalError(err)
	}

	score, err := recomputeScore(tx, &models.TopicVote{}, "topic_id", topicID)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Model(&models.Topic{}).Where("id = ?", topicID).
		UpdateColumn("vote_score", score).Error; err != nil {
		tx.Rollback()
		return 0, models.NewInternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return score, nil
}

// ToggleReplyVote mirrors ToggleTopicVote for a reply, located at any depth
// of the given topic's forest.
func (e *Engine) ToggleReplyVote(topicID, replyID, userID uint, value int) (int, error) {
	if _, err := e.replyInTopic(topicID, replyID); err != nil {
		return 0, err
	}

	tx := e.db.Begin()

	var existing models.ReplyVote
	err := tx.Where("reply_id = ? AND user_id = ?", replyID, userID).First(&existing).Error
	switch {
	case err == nil && existing.Value == value:
		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	case err == nil:
		existing.Value = value
		if err := tx.Save(&existing).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := models.ReplyVote{ReplyID: replyID, UserID: userID, Value: value}
		if err := tx.Create(&vote).Error; err != nil {
			tx.Rollback()
			return 0, models.NewInternalError(err)
		}
	default:
		tx.Rollback()
		return 0, models.NewInternalError(err)
	}

	score, err := recomputeScore(tx, &models.ReplyVote{}, "reply_id", replyID)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Model(&models.Reply{}).Where("id = ?", replyID).
		UpdateColumn("vote_score", score).Error; err != nil {
		tx.Rollback()
		return 0, models.NewInternalError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return score, nil
}

// recomputeScore derives the score from the vote rows themselves so it can
// never drift from the underlying sets.
func recomputeScore(tx *gorm.DB, model interface{}, column string, id uint) (int, error) {
	var score int64
	if err := tx.Model(model).
		Select("COALESCE(SUM(value), 0)").
		Where(column+" = ?", id).
		Scan(&score).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return int(score), nil
}

func (e *Engine) replyInTopic(topicID, replyID uint) (*models.Reply, error) {
	var count int64
	if err := e.db.Model(&models.Topic{}).Where("id = ?", topicID).Count(&count).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if count == 0 {
		return nil, models.NewNotFoundError("Topic")
	}

	var reply models.Reply
	if err := e.db.Where("id = ? AND topic_id = ?", replyID, topicID).First(&reply).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Reply")
		}
		return nil, models.NewInternalError(err)
	}
	return &reply, nil
}

// ReportTopic records a report once per user; membership in the reporter set
// enforces the dedup, not the count.
func (e *Engine) ReportTopic(topicID, userID uint) (int64, error) {
	var topic models.Topic
	if err := e.db.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("Topic")
		}
		return 0, models.NewInternalError(err)
	}

	var existing int64
	e.db.Model(&models.TopicReport{}).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Count(&existing)
	if existing > 0 {
		return 0, models.NewDuplicateActionError("You have already reported this topic")
	}

	report := models.TopicReport{TopicID: topicID, UserID: userID}
	if err := e.db.Create(&report).Error; err != nil {
		return 0, models.NewInternalError(err)
	}

	var total int64
	e.db.Model(&models.TopicReport{}).Where("topic_id = ?", topicID).Count(&total)
	return total, nil
}

// ReportReply bumps the reply's report counter. There is no per-user dedup
// here; repeated reports from the same user all count.
func (e *Engine) ReportReply(topicID, replyID, userID uint) (int, error) {
	reply, err := e.replyInTopic(topicID, replyID)
	if err != nil {
		return 0, err
	}

	if err := e.db.Model(&models.Reply{}).Where("id = ?", replyID).
		UpdateColumn("report_count", gorm.Expr("report_count + ?", 1)).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return reply.ReportCount + 1, nil
}

func (e *Engine) SaveTopic(userID, topicID uint) error {
	var topic models.Topic
	if err := e.db.First(&topic, topicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Topic")
		}
		return models.NewInternalError(err)
	}

	var existing int64
	e.db.Model(&models.SavedTopic{}).
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		Count(&existing)
	if existing > 0 {
		return models.NewDuplicateActionError("Topic already saved")
	}

	saved := models.SavedTopic{UserID: userID, TopicID: topicID}
	if err := e.db.Create(&saved).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UnsaveTopic is a no-op when the topic was never saved.
func (e *Engine) UnsaveTopic(userID, topicID uint) error {
	if err := e.db.Unscoped().
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		Delete(&models.SavedTopic{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (e *Engine) ListSavedTopics(userID uint) ([]TopicSummary, error) {
	var topics []*models.Topic
	if err := e.db.Preload("User").
		Joins("JOIN saved_topics ON saved_topics.topic_id = topics.id").
		Where("saved_topics.user_id = ? AND saved_topics.deleted_at IS NULL", userID).
		Order("saved_topics.created_at DESC").
		Find(&topics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return e.summarize(topics), nil
}

func (e *Engine) ListTopicsAuthoredBy(userID uint) ([]TopicSummary, error) {
	var topics []*models.Topic
	if err := e.db.Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&topics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return e.summarize(topics), nil
}

// ListTopicsCommentedOnBy returns topics where the user authored a reply at
// any nesting depth.
func (e *Engine) ListTopicsCommentedOnBy(userID uint) ([]TopicSummary, error) {
	var topicIDs []uint
	if err := e.db.Model(&models.Reply{}).
		Distinct("topic_id").
		Where("user_id = ?", userID).
		Pluck("topic_id", &topicIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(topicIDs) == 0 {
		return []TopicSummary{}, nil
	}

	var topics []*models.Topic
	if err := e.db.Preload("User").
		Where("id IN ?", topicIDs).
		Order("created_at DESC").
		Find(&topics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return e.summarize(topics), nil
}
