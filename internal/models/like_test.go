package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikes_Contains_IgnoresCase(t *testing.T) {
	likes := Likes{{WalletAddress: "0xAbC"}}

	assert.True(t, likes.Contains("0xabc"))
	assert.True(t, likes.Contains("0XABC"))
	assert.False(t, likes.Contains("0xdef"))
}

func TestLikes_Toggle(t *testing.T) {
	var likes Likes

	liked, on := likes.Toggle("0xA")
	assert.True(t, on)
	assert.Equal(t, []string{"0xA"}, liked.Addresses())

	unliked, on := liked.Toggle("0xa")
	assert.False(t, on)
	assert.Empty(t, unliked)
}

func TestLikes_DoesNotAliasReceiver(t *testing.T) {
	base := make(Likes, 1, 4)
	base[0] = Like{WalletAddress: "0xA"}

	next := base.Add("0xB")
	next[0].WalletAddress = "0xZ"

	// Add must not write into the spare capacity or the elements of base
	assert.Equal(t, "0xA", base[0].WalletAddress)
	assert.Len(t, base, 1)
}

func TestLikes_AddExisting(t *testing.T) {
	likes := Likes{{WalletAddress: "0xA"}}

	assert.Len(t, likes.Add("0xa"), 1)
}

func TestLikes_Dedup(t *testing.T) {
	likes := Likes{{WalletAddress: "0xA"}, {WalletAddress: "0xB"}, {WalletAddress: "0xa"}}

	assert.Equal(t, []string{"0xA", "0xB"}, likes.Dedup().Addresses())
}

func TestPost_WithLikes_KeepsCountInStep(t *testing.T) {
	post := Post{ID: "p1"}

	post = post.WithLikes(Likes{{WalletAddress: "0xA"}, {WalletAddress: "0xB"}}, "0xb")
	assert.Equal(t, 2, post.LikesCount)
	assert.True(t, post.IsLiked)

	post = post.WithLikes(nil, "0xB")
	assert.Equal(t, 0, post.LikesCount)
	assert.False(t, post.IsLiked)
	assert.NotNil(t, post.Likes)
}

func TestComment_WithLikes_NoActor(t *testing.T) {
	comment := Comment{ID: "c1"}.WithLikes(Likes{{WalletAddress: "0xA"}}, "")

	assert.Equal(t, 1, comment.LikesCount)
	assert.False(t, comment.IsLiked)
}
