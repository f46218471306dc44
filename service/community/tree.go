package community

import (
	"github.com/legalconnect/legalconnect-server/cmd/models"
)

// BuildForest assembles a topic's reply forest from its flat rows. Rows must
// arrive ordered by creation so every child list keeps posting order; a row
// whose parent is missing is treated as top-level rather than dropped.
func BuildForest(replies []*models.Reply) []*models.Reply {
	byID := make(map[uint]*models.Reply, len(replies))
	for _, r := range replies {
		r.Children = nil
		byID[r.ID] = r
	}

	var roots []*models.Reply
	for _, r := range replies {
		if r.ParentID != nil {
			if parent, ok := byID[*r.ParentID]; ok {
				parent.Children = append(parent.Children, r)
				continue
			}
		}
		roots = append(roots, r)
	}
	return roots
}

// FindReply walks the forest depth-first and returns the first pre-order
// match for id, or nil.
func FindReply(forest []*models.Reply, id uint) *models.Reply {
	for _, r := range forest {
		if r.ID == id {
			return r
		}
		if found := FindReply(r.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// CountReplies counts every node in the forest, at any depth.
func CountReplies(forest []*models.Reply) int {
	count := 0
	for _, r := range forest {
		count += 1 + CountReplies(r.Children)
	}
	return count
}

// CollectAuthorIDs gathers the user IDs of every reply in the forest.
func CollectAuthorIDs(forest []*models.Reply, out map[uint]struct{}) {
	for _, r := range forest {
		out[r.UserID] = struct{}{}
		CollectAuthorIDs(r.Children, out)
	}
}
