package community

import (
	"testing"

	"github.com/legalconnect/legalconnect-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(id uint, parentID *uint, userID uint) *models.Reply {
	r := &models.Reply{UserID: userID}
	r.ID = id
	r.ParentID = parentID
	return r
}

func ptr(v uint) *uint { return &v }

func TestBuildForestNestsChildren(t *testing.T) {
	replies := []*models.Reply{
		reply(1, nil, 10),
		reply(2, ptr(1), 11),
		reply(3, ptr(2), 12),
		reply(4, nil, 10),
	}

	forest := BuildForest(replies)

	require.Len(t, forest, 2)
	require.Len(t, forest[0].Children, 1)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, uint(3), forest[0].Children[0].Children[0].ID)
	assert.Empty(t, forest[1].Children)
}

func TestBuildForestOrphanBecomesRoot(t *testing.T) {
	replies := []*models.Reply{
		reply(1, nil, 10),
		reply(2, ptr(99), 11), // parent was deleted
	}

	forest := BuildForest(replies)

	require.Len(t, forest, 2)
	assert.Equal(t, uint(2), forest[1].ID)
}

func TestFindReplyAtDepth(t *testing.T) {
	forest := BuildForest([]*models.Reply{
		reply(1, nil, 10),
		reply(2, ptr(1), 11),
		reply(3, ptr(2), 12),
		reply(4, nil, 13),
	})

	assert.Equal(t, uint(3), FindReply(forest, 3).ID)
	assert.Equal(t, uint(4), FindReply(forest, 4).ID)
	assert.Nil(t, FindReply(forest, 42))
}

func TestCountRepliesCountsAllDepths(t *testing.T) {
	forest := BuildForest([]*models.Reply{
		reply(1, nil, 10),
		reply(2, ptr(1), 11),
		reply(3, ptr(2), 12),
		reply(4, ptr(1), 13),
	})

	assert.Equal(t, 4, CountReplies(forest))
	assert.Equal(t, 0, CountReplies(nil))
}

func TestCollectAuthorIDsDeduplicates(t *testing.T) {
	forest := BuildForest([]*models.Reply{
		reply(1, nil, 10),
		reply(2, ptr(1), 11),
		reply(3, ptr(2), 10),
	})

	out := make(map[uint]struct{})
	CollectAuthorIDs(forest, out)

	assert.Len(t, out, 2)
	assert.Contains(t, out, uint(10))
	assert.Contains(t, out, uint(11))
}

func TestNormalizeProfileImage(t *testing.T) {
	assert.Equal(t, placeholderImage, normalizeProfileImage(""))
	assert.Equal(t, placeholderImage, normalizeProfileImage("default-profile.png"))
	assert.Equal(t, "/images/me.png", normalizeProfileImage("/images/me.png"))
}

func TestFormatAuthorAnonymous(t *testing.T) {
	user := &models.User{Name: "Ama Mensah", ProfileImage: "/images/ama.png"}
	user.ID = 7

	view := formatAuthor(user, true)
	assert.Equal(t, anonymousName, view.Name)
	assert.Equal(t, placeholderImage, view.ProfileImage)

	view = formatAuthor(user, false)
	assert.Equal(t, "Ama Mensah", view.Name)
	assert.Equal(t, "/images/ama.png", view.ProfileImage)
}

func TestFormatAuthorMissingUser(t *testing.T) {
	view := formatAuthor(nil, false)
	assert.Equal(t, fallbackName, view.Name)
	assert.Equal(t, placeholderImage, view.ProfileImage)
}
