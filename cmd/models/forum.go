package models

import "gorm.io/gorm"

type Topic struct {
	gorm.Model
	UserID    uint   `gorm:"column:user_id;not null" json:"user_id"`
	Title     string `gorm:"column:title;size:255;not null" json:"title"`
	Category  string `gorm:"column:category;size:100;not null" json:"category"`
	Content   string `gorm:"column:content;type:text;not null" json:"content"`
	Anonymous bool   `gorm:"column:anonymous;default:false" json:"anonymous"`
	Views     int    `gorm:"column:views;default:0" json:"views"`
	Pinned    bool   `gorm:"column:pinned;default:false" json:"pinned"`
	VoteScore int    `gorm:"column:vote_score;default:0" json:"vote_score"`

	User    *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Replies []Reply       `gorm:"foreignKey:TopicID" json:"replies,omitempty"`
	Votes   []TopicVote   `gorm:"foreignKey:TopicID" json:"-"`
	Reports []TopicReport `gorm:"foreignKey:TopicID" json:"-"`
}

// Reply rows form a forest per topic via ParentID. The tree itself is built
// in memory by the community engine; GORM only stores the flat rows.
type Reply struct {
	gorm.Model
	TopicID     uint   `gorm:"column:topic_id;not null;index" json:"topic_id"`
	ParentID    *uint  `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	UserID      uint   `gorm:"column:user_id;not null" json:"user_id"`
	Content     string `gorm:"column:content;type:text;not null" json:"content"`
	Anonymous   bool   `gorm:"column:anonymous;default:false" json:"anonymous"`
	VoteScore   int    `gorm:"column:vote_score;default:0" json:"vote_score"`
	ReportCount int    `gorm:"column:report_count;default:0" json:"report_count"`

	User     *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Children []*Reply    `gorm:"-" json:"replies,omitempty"`
	Votes    []ReplyVote `gorm:"foreignKey:ReplyID" json:"-"`
}

// TopicVote holds one row per voter per topic. Value is +1 or -1; the unique
// index is what makes a voter's upvote and downvote mutually exclusive.
type TopicVote struct {
	gorm.Model
	TopicID uint `gorm:"column:topic_id;not null;uniqueIndex:idx_topic_voter" json:"topic_id"`
	UserID  uint `gorm:"column:user_id;not null;uniqueIndex:idx_topic_voter" json:"user_id"`
	Value   int  `gorm:"column:value;not null" json:"value"`
}

type ReplyVote struct {
	gorm.Model
	ReplyID uint `gorm:"column:reply_id;not null;uniqueIndex:idx_reply_voter" json:"reply_id"`
	UserID  uint `gorm:"column:user_id;not null;uniqueIndex:idx_reply_voter" json:"user_id"`
	Value   int  `gorm:"column:value;not null" json:"value"`
}

// TopicReport dedupes reports per user. Replies intentionally have no such
// table; their report_count is a plain counter.
type TopicReport struct {
	gorm.Model
	TopicID uint `gorm:"column:topic_id;not null;uniqueIndex:idx_topic_reporter" json:"topic_id"`
	UserID  uint `gorm:"column:user_id;not null;uniqueIndex:idx_topic_reporter" json:"user_id"`
}

type SavedTopic struct {
	gorm.Model
	UserID  uint `gorm:"column:user_id;not null;uniqueIndex:idx_saved_topic" json:"user_id"`
	TopicID uint `gorm:"column:topic_id;not null;uniqueIndex:idx_saved_topic" json:"topic_id"`
}
