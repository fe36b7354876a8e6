package thread

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-thread/internal/models"
)

func comment(id, parentID, email, content string) models.CommentRecord {
	return models.CommentRecord{
		CommentID:       id,
		ParentCommentID: parentID,
		Owner:           email,
		UserEmail:       email,
		CommentContent:  content,
	}
}

func TestBuildForestNesting(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "root one"),
		comment("c2", "c1", "bob@example.com", "reply to one"),
		comment("c3", "", "carol@example.com", "root two"),
		comment("c4", "c2", "alice@example.com", "reply to reply"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 2)

	// Roots keep the relative order of the input list.
	assert.Equal(t, "c1", forest[0].CommentID)
	assert.Equal(t, "c3", forest[1].CommentID)

	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, "c2", forest[0].Replies[0].CommentID)
	require.Len(t, forest[0].Replies[0].Replies, 1)
	assert.Equal(t, "c4", forest[0].Replies[0].Replies[0].CommentID)

	assert.Equal(t, 0, forest[0].Depth)
	assert.Equal(t, 1, forest[0].Replies[0].Depth)
	assert.Equal(t, 2, forest[0].Replies[0].Replies[0].Depth)
}

func TestBuildForestSiblingOrderPreserved(t *testing.T) {
	records := []models.CommentRecord{
		comment("p", "", "alice@example.com", "parent"),
		comment("r1", "p", "bob@example.com", "first"),
		comment("r2", "p", "carol@example.com", "second"),
		comment("r3", "p", "dave@example.com", "third"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Replies, 3)
	assert.Equal(t, "r1", forest[0].Replies[0].CommentID)
	assert.Equal(t, "r2", forest[0].Replies[1].CommentID)
	assert.Equal(t, "r3", forest[0].Replies[2].CommentID)
}

func TestBuildForestChildBeforeParent(t *testing.T) {
	// The backend does not guarantee parents precede children.
	records := []models.CommentRecord{
		comment("child", "parent", "bob@example.com", "reply"),
		comment("parent", "", "alice@example.com", "root"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 1)
	assert.Equal(t, "parent", forest[0].CommentID)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, "child", forest[0].Replies[0].CommentID)
	assert.Equal(t, 1, forest[0].Replies[0].Depth)
}

func TestBuildForestDanglingParentBecomesRoot(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "root"),
		comment("orphan", "gone", "bob@example.com", "parent was deleted"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 2)
	assert.Equal(t, "orphan", forest[1].CommentID)
	assert.Equal(t, 0, forest[1].Depth)
}

func TestBuildForestCycleBecomesRoot(t *testing.T) {
	// a → b → a can only come from corrupted server data; every record
	// must still be shown and the builder must terminate.
	records := []models.CommentRecord{
		comment("a", "b", "alice@example.com", "first"),
		comment("b", "a", "bob@example.com", "second"),
	}

	forest := BuildForest(records)

	total := 0
	for _, root := range forest {
		total += 1 + CountReplies(root)
	}
	assert.Equal(t, 2, total)
	assert.NotEmpty(t, forest)
}

func TestBuildForestSelfParentBecomesRoot(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "c1", "alice@example.com", "points at itself"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 1)
	assert.Equal(t, "c1", forest[0].CommentID)
	assert.Equal(t, 0, forest[0].Depth)
}

func TestBuildForestDuplicateIDs(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "original"),
		comment("c1", "", "mallory@example.com", "duplicate id"),
		comment("c2", "c1", "bob@example.com", "reply"),
	}

	forest := BuildForest(records)

	// The first record stays authoritative and keeps the reply; the
	// duplicate surfaces as its own root.
	total := 0
	for _, root := range forest {
		total += 1 + CountReplies(root)
	}
	assert.Equal(t, 3, total)
	require.Len(t, forest, 2)
	assert.Equal(t, "original", forest[0].CommentContent)
	require.Len(t, forest[0].Replies, 1)
}

func TestBuildForestDeterministic(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "root"),
		comment("c2", "c1", "bob@example.com", "reply"),
		comment("c3", "", "carol@example.com", "root two"),
	}

	first := Flatten(BuildForest(records))
	second := Flatten(BuildForest(records))

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].CommentID, second[i].CommentID)
		assert.Equal(t, first[i].Depth, second[i].Depth)
	}
}

func TestBuildForestEmpty(t *testing.T) {
	forest := BuildForest(nil)
	assert.Empty(t, forest)
	assert.Empty(t, Flatten(forest))
}

func TestFlattenDisplayOrder(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "root one"),
		comment("c2", "c1", "bob@example.com", "reply"),
		comment("c3", "c2", "carol@example.com", "deep reply"),
		comment("c4", "", "dave@example.com", "root two"),
		comment("c5", "c1", "erin@example.com", "second reply"),
	}

	flat := Flatten(BuildForest(records))
	require.Len(t, flat, 5)

	ids := make([]string, 0, len(flat))
	for _, node := range flat {
		ids = append(ids, node.CommentID)
	}
	// Pre-order: a reply chain appears directly under its parent,
	// before the next sibling or root.
	assert.Equal(t, []string{"c1", "c2", "c3", "c5", "c4"}, ids)
}

func TestCountRepliesCountsAllDescendants(t *testing.T) {
	records := []models.CommentRecord{
		comment("c1", "", "alice@example.com", "root"),
		comment("c2", "c1", "bob@example.com", "reply"),
		comment("c3", "c2", "carol@example.com", "nested"),
		comment("c4", "c1", "dave@example.com", "sibling reply"),
		comment("c5", "", "erin@example.com", "unrelated root"),
	}

	forest := BuildForest(records)
	require.Len(t, forest, 2)

	assert.Equal(t, 3, CountReplies(forest[0]))
	assert.Equal(t, 0, CountReplies(forest[1]))
	assert.Equal(t, 1, CountReplies(forest[0].Replies[0]))
}

func TestDeepThreadDoesNotOverflow(t *testing.T) {
	// 10k-deep chain; the iterative builder and traversals must handle
	// it without blowing the stack.
	const depth = 10000
	records := make([]models.CommentRecord, 0, depth)
	records = append(records, comment("c0", "", "alice@example.com", "root"))
	for i := 1; i < depth; i++ {
		records = append(records, comment(
			nodeID(i), nodeID(i-1), "alice@example.com", "deep"))
	}

	forest := BuildForest(records)
	require.Len(t, forest, 1)
	assert.Equal(t, depth-1, CountReplies(forest[0]))

	flat := Flatten(forest)
	require.Len(t, flat, depth)
	assert.Equal(t, depth-1, flat[len(flat)-1].Depth)
}

func nodeID(i int) string {
	return "c" + strconv.Itoa(i)
}
