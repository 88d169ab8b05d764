package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTagRoundTrip(t *testing.T) {
	for _, id := range []string{"u1", "", "USER:u1", "a:b:c", "ğüşİ", "  spaced  "} {
		tag := EncodeUserTag(id)
		got, ok := DecodeUserTag(tag)
		require.True(t, ok, "tag %q", tag)
		assert.Equal(t, id, got)
	}
}

func TestDecodeUserTagRejectsOtherTags(t *testing.T) {
	for _, tag := range []string{"", "user:u1", "USER", "vip", " USER:u1", "ORDER:42"} {
		_, ok := DecodeUserTag(tag)
		assert.False(t, ok, "tag %q", tag)
	}
}

func TestPartitionTags(t *testing.T) {
	p := PartitionTags([]string{"vip", "USER:u2", "refund", "USER:u1", "USER:u2", "vip"})

	assert.Equal(t, []string{"u2", "u1"}, p.UserIDs)
	// Free-form tags are not deduplicated; they are not ours to manage.
	assert.Equal(t, []string{"vip", "refund", "vip"}, p.Other)
}

func TestPartitionTagsEmpty(t *testing.T) {
	p := PartitionTags(nil)
	assert.Empty(t, p.UserIDs)
	assert.Empty(t, p.Other)
}

func TestBuildReplacesMentionTags(t *testing.T) {
	existing := []string{"USER:old", "priority", "USER:u1"}

	got := Build([]string{"u1", "u3", "u1"}, existing)

	assert.Equal(t, []string{"priority", "USER:u1", "USER:u3"}, got)
}

func TestBuildWithoutMentionsDropsStaleTags(t *testing.T) {
	got := Build(nil, []string{"USER:u1", "returns"})
	assert.Equal(t, []string{"returns"}, got)
}

func TestNormalizeKeepsExistingMentions(t *testing.T) {
	got := Normalize([]string{"USER:u1", "gift", "USER:u1"}, "u2", "u1")
	assert.Equal(t, []string{"gift", "USER:u1", "USER:u2"}, got)
}

func TestUserIDs(t *testing.T) {
	assert.Equal(t, []string{"u1", "u2"}, UserIDs([]string{"USER:u1", "x", "USER:u2", "USER:u1"}))
}
