package community

import (
	"time"

	"github.com/legalconnect/legalconnect-server/cmd/models"
)

const (
	anonymousName    = "Anonymous"
	fallbackName     = "Anonymous User"
	placeholderImage = "/lawyer.png"
)

type UserView struct {
	Name         string    `json:"name"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

type ReplyView struct {
	ID        uint        `json:"id"`
	Content   string      `json:"content"`
	Anonymous bool        `json:"anonymous"`
	VoteScore int         `json:"voteScore"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserView    `json:"user"`
	Replies   []ReplyView `json:"replies"`
}

type TopicSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Anonymous bool      `json:"anonymous"`
	User      UserView  `json:"user"`
	Replies   int       `json:"replies"`
	Views     int       `json:"views"`
	VoteScore int       `json:"voteScore"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
}

type TopicDetail struct {
	ID        uint        `json:"id"`
	Title     string      `json:"title"`
	Category  string      `json:"category"`
	Content   string      `json:"content"`
	Anonymous bool        `json:"anonymous"`
	User      UserView    `json:"user"`
	Replies   []ReplyView `json:"replies"`
	Views     int         `json:"views"`
	VoteScore int         `json:"voteScore"`
	Pinned    bool        `json:"pinned"`
	Reported  bool        `json:"reported"`
	Saved     bool        `json:"saved"`
	CreatedAt time.Time   `json:"createdAt"`
}

func normalizeProfileImage(profileImage string) string {
	if profileImage == "" || profileImage == "default-profile.png" {
		return placeholderImage
	}
	return profileImage
}

// formatAuthor resolves the display identity for a topic or reply author.
// Anonymous posts and missing author records both collapse to a placeholder.
func formatAuthor(user *models.User, anonymous bool) UserView {
	if anonymous {
		return UserView{Name: anonymousName, ProfileImage: placeholderImage}
	}
	if user == nil {
		return UserView{Name: fallbackName, ProfileImage: placeholderImage}
	}
	return UserView{
		Name:         user.Name,
		ProfileImage: normalizeProfileImage(user.ProfileImage),
		CreatedAt:    user.CreatedAt,
	}
}

func formatReply(reply *models.Reply, userByID map[uint]*models.User) ReplyView {
	children := make([]ReplyView, 0, len(reply.Children))
	for _, child := range reply.Children {
		children = append(children, formatReply(child, userByID))
	}

	return ReplyView{
		ID:        reply.ID,
		Content:   reply.Content,
		Anonymous: reply.Anonymous,
		VoteScore: reply.VoteScore,
		CreatedAt: reply.CreatedAt,
		User:      formatAuthor(userByID[reply.UserID], reply.Anonymous),
		Replies:   children,
	}
}

func formatSummary(topic *models.Topic, replyCount int) TopicSummary {
	return TopicSummary{
		ID:        topic.ID,
		Title:     topic.Title,
		Category:  topic.Category,
		Content:   topic.Content,
		Anonymous: topic.Anonymous,
		User:      formatAuthor(topic.User, topic.Anonymous),
		Replies:   replyCount,
		Views:     topic.Views,
		VoteScore: topic.VoteScore,
		Pinned:    topic.Pinned,
		CreatedAt: topic.CreatedAt,
	}
}
