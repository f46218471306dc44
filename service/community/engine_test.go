package community

import (
	"testing"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Reply{},
		&models.TopicVote{},
		&models.ReplyVote{},
		&models.TopicReport{},
		&models.SavedTopic{},
	))

	return NewEngine(db)
}

func seedUser(t *testing.T, e *Engine, name string) uint {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, e.db.Create(&user).Error)
	return user.ID
}

func seedTopic(t *testing.T, e *Engine, userID uint) uint {
	t.Helper()
	summary, err := e.CreateTopic(userID, "Tenant rights after eviction notice", "Housing", "My landlord gave me 48 hours to leave.", false)
	require.NoError(t, err)
	return summary.ID
}

func TestCreateTopicValidation(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")

	_, err := e.CreateTopic(userID, "", "Housing", "content", false)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	_, err = e.CreateTopic(userID, "Title", "   ", "content", false)
	require.Error(t, err)
}

func TestListTopicsPinnedFirst(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")

	first := seedTopic(t, e, userID)
	second := seedTopic(t, e, userID)
	require.NoError(t, e.db.Model(&models.Topic{}).Where("id = ?", first).
		UpdateColumn("pinned", true).Error)

	summaries, total, err := e.ListTopics(TopicFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, summaries, 2)
	assert.Equal(t, first, summaries[0].ID)
	assert.Equal(t, second, summaries[1].ID)
}

func TestListTopicsSearchIsCaseInsensitive(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	seedTopic(t, e, userID)

	summaries, _, err := e.ListTopics(TopicFilter{Search: "EVICTION"})
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	summaries, _, err = e.ListTopics(TopicFilter{Search: "divorce"})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestGetTopicDetailIncrementsViews(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	detail, err := e.GetTopicDetail(topicID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Views)

	detail, err = e.GetTopicDetail(topicID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Views)
}

func TestAddReplyNested(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	root, err := e.AddReply(topicID, userID, "Check your tenancy agreement first.", nil, false)
	require.NoError(t, err)

	child, err := e.AddReply(topicID, userID, "Also the Rent Act applies here.", &root.ID, false)
	require.NoError(t, err)

	_, err = e.AddReply(topicID, userID, "Deeper still.", &child.ID, false)
	require.NoError(t, err)

	detail, err := e.GetTopicDetail(topicID, 0)
	require.NoError(t, err)
	require.Len(t, detail.Replies, 1)
	require.Len(t, detail.Replies[0].Replies, 1)
	require.Len(t, detail.Replies[0].Replies[0].Replies, 1)
}

func TestAddReplyUnknownParent(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	missing := uint(9999)
	_, err := e.AddReply(topicID, userID, "orphaned", &missing, false)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestToggleTopicVoteRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	score, err := e.ToggleTopicVote(topicID, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	// Same direction again toggles the vote off.
	score, err = e.ToggleTopicVote(topicID, userID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	var votes int64
	e.db.Model(&models.TopicVote{}).Where("topic_id = ?", topicID).Count(&votes)
	assert.Zero(t, votes)
}

func TestToggleTopicVoteDisplacesOpposite(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	_, err := e.ToggleTopicVote(topicID, userID, 1)
	require.NoError(t, err)

	score, err := e.ToggleTopicVote(topicID, userID, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, score)

	// One row per voter regardless of how often direction flips.
	var votes int64
	e.db.Model(&models.TopicVote{}).Where("topic_id = ?", topicID).Count(&votes)
	assert.Equal(t, int64(1), votes)
}

func TestToggleTopicVoteMultipleVoters(t *testing.T) {
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	carol := seedUser(t, e, "carol")
	topicID := seedTopic(t, e, alice)

	_, err := e.ToggleTopicVote(topicID, alice, 1)
	require.NoError(t, err)
	_, err = e.ToggleTopicVote(topicID, bob, 1)
	require.NoError(t, err)
	score, err := e.ToggleTopicVote(topicID, carol, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, score)

	var topic models.Topic
	require.NoError(t, e.db.First(&topic, topicID).Error)
	assert.Equal(t, 1, topic.VoteScore)
}

func TestToggleReplyVote(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	root, err := e.AddReply(topicID, userID, "a reply", nil, false)
	require.NoError(t, err)
	nested, err := e.AddReply(topicID, userID, "a nested reply", &root.ID, false)
	require.NoError(t, err)

	score, err := e.ToggleReplyVote(topicID, nested.ID, userID, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, score)

	score, err = e.ToggleReplyVote(topicID, nested.ID, userID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestToggleReplyVoteWrongTopic(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicA := seedTopic(t, e, userID)
	topicB := seedTopic(t, e, userID)

	reply, err := e.AddReply(topicA, userID, "on topic A", nil, false)
	require.NoError(t, err)

	_, err = e.ToggleReplyVote(topicB, reply.ID, userID, 1)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestReportTopicDeduplicates(t *testing.T) {
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	topicID := seedTopic(t, e, alice)

	count, err := e.ReportTopic(topicID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = e.ReportTopic(topicID, alice)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeDuplicateAction, appErr.Code)

	count, err = e.ReportTopic(topicID, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestReportReplyHasNoDedup(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	reply, err := e.AddReply(topicID, userID, "a reply", nil, false)
	require.NoError(t, err)

	count, err := e.ReportReply(topicID, reply.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same user reporting again still bumps the counter.
	count, err = e.ReportReply(topicID, reply.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveAndUnsaveTopic(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")
	topicID := seedTopic(t, e, userID)

	require.NoError(t, e.SaveTopic(userID, topicID))

	err := e.SaveTopic(userID, topicID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeDuplicateAction, appErr.Code)

	saved, err := e.ListSavedTopics(userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, topicID, saved[0].ID)

	require.NoError(t, e.UnsaveTopic(userID, topicID))
	saved, err = e.ListSavedTopics(userID)
	require.NoError(t, err)
	assert.Empty(t, saved)

	// Unsaving a topic that was never saved is a no-op.
	require.NoError(t, e.UnsaveTopic(userID, topicID))
}

func TestTopicDetailFlagsForRequester(t *testing.T) {
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	topicID := seedTopic(t, e, alice)

	_, err := e.ReportTopic(topicID, bob)
	require.NoError(t, err)
	require.NoError(t, e.SaveTopic(bob, topicID))

	detail, err := e.GetTopicDetail(topicID, bob)
	require.NoError(t, err)
	assert.True(t, detail.Reported)
	assert.True(t, detail.Saved)

	detail, err = e.GetTopicDetail(topicID, alice)
	require.NoError(t, err)
	assert.False(t, detail.Reported)
	assert.False(t, detail.Saved)
}

func TestListTopicsCommentedOnBy(t *testing.T) {
	e := newTestEngine(t)
	alice := seedUser(t, e, "alice")
	bob := seedUser(t, e, "bob")
	topicID := seedTopic(t, e, alice)
	seedTopic(t, e, alice)

	root, err := e.AddReply(topicID, bob, "root comment", nil, false)
	require.NoError(t, err)
	_, err = e.AddReply(topicID, bob, "nested comment", &root.ID, false)
	require.NoError(t, err)

	topics, err := e.ListTopicsCommentedOnBy(bob)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, topicID, topics[0].ID)
	assert.Equal(t, 2, topics[0].Replies)

	topics, err = e.ListTopicsCommentedOnBy(alice)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestAnonymousTopicHidesAuthor(t *testing.T) {
	e := newTestEngine(t)
	userID := seedUser(t, e, "kofi")

	summary, err := e.CreateTopic(userID, "Embarrassing question", "Family", "Asking for a friend.", true)
	require.NoError(t, err)
	assert.Equal(t, anonymousName, summary.User.Name)
	assert.Equal(t, placeholderImage, summary.User.ProfileImage)
}
