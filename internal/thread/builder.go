// Package thread reconstructs the reply forest from the flat comment
// list the backend returns.
package thread

import "review-thread/internal/models"

// BuildForest turns the complete flat comment list for one article
// into an ordered forest. Children keep the relative order of the
// input list. Records whose parent is missing from the list, or whose
// parent chain loops back on itself, are kept as roots instead of
// being dropped; malformed server data must never lose a comment or
// hang the builder.
func BuildForest(comments []models.CommentRecord) []*models.CommentNode {
	index := make(map[string]*models.CommentNode, len(comments))
	order := make([]*models.CommentNode, 0, len(comments))

	for _, record := range comments {
		node := &models.CommentNode{
			CommentRecord: record,
			Replies:       []*models.CommentNode{},
		}
		if _, dup := index[record.CommentID]; dup {
			// Duplicate IDs should not happen; keep the first record
			// authoritative and surface the duplicate as a root so it
			// is still visible.
			node.ParentCommentID = ""
			order = append(order, node)
			continue
		}
		index[record.CommentID] = node
		order = append(order, node)
	}

	roots := make([]*models.CommentNode, 0, len(order))
	for _, node := range order {
		if node.ParentCommentID == "" {
			roots = append(roots, node)
			continue
		}

		parent, found := index[node.ParentCommentID]
		if !found || parent == node || createsCycle(index, node) {
			node.Depth = 0
			roots = append(roots, node)
			continue
		}

		parent.Replies = append(parent.Replies, node)
	}

	// Depths are assigned after the links settle so that a child that
	// appears before its parent in the input still ends up correct.
	assignDepths(roots)
	return roots
}

// createsCycle walks the parent chain of node and reports whether it
// ever returns to node. The walk is bounded by the index size, so a
// corrupted chain cannot loop forever.
func createsCycle(index map[string]*models.CommentNode, node *models.CommentNode) bool {
	seen := 0
	current := node
	for current.ParentCommentID != "" {
		parent, found := index[current.ParentCommentID]
		if !found {
			return false
		}
		if parent == node {
			return true
		}
		seen++
		if seen > len(index) {
			return true
		}
		current = parent
	}
	return false
}

// assignDepths sets Depth on every node via an explicit stack, not
// recursion; threads can nest arbitrarily deep.
func assignDepths(roots []*models.CommentNode) {
	type frame struct {
		node  *models.CommentNode
		depth int
	}

	stack := make([]frame, 0, len(roots))
	for _, root := range roots {
		stack = append(stack, frame{root, 0})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		top.node.Depth = top.depth
		for _, reply := range top.node.Replies {
			stack = append(stack, frame{reply, top.depth + 1})
		}
	}
}

// Flatten returns the forest in display order (pre-order, replies
// under their parent) using an explicit stack.
func Flatten(forest []*models.CommentNode) []*models.CommentNode {
	flat := make([]*models.CommentNode, 0, len(forest))

	stack := make([]*models.CommentNode, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, forest[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		flat = append(flat, node)

		for i := len(node.Replies) - 1; i >= 0; i-- {
			stack = append(stack, node.Replies[i])
		}
	}

	return flat
}

// CountReplies counts all descendants of node, not just direct
// replies. Drives the "Show N replies" toggle.
func CountReplies(node *models.CommentNode) int {
	count := 0
	stack := make([]*models.CommentNode, 0, len(node.Replies))
	stack = append(stack, node.Replies...)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, current.Replies...)
	}

	return count
}
