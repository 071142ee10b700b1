package blog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalTime_JSON(t *testing.T) {
	b := testBlog("id-1")

	blogJson, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(blogJson), `"updated_at":null`)

	decoded := &Blog{}
	require.NoError(t, json.Unmarshal(blogJson, decoded))
	assert.False(t, decoded.UpdatedAt.IsSet())

	updatedAt := time.Date(2024, time.April, 1, 8, 30, 0, 0, time.UTC)
	b.UpdatedAt = TimeOf(updatedAt)
	blogJson, err = json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(blogJson), `"updated_at":"2024-04-01T08:30:00Z"`)

	decoded = &Blog{}
	require.NoError(t, json.Unmarshal(blogJson, decoded))
	got, set := decoded.UpdatedAt.Get()
	require.True(t, set)
	assert.True(t, updatedAt.Equal(got))
	assert.True(t, b.UpdatedAt.Equal(decoded.UpdatedAt))

	var missing OptionalTime
	require.NoError(t, json.Unmarshal([]byte(`{}`), &struct {
		UpdatedAt *OptionalTime `json:"updated_at"`
	}{&missing}))
	assert.False(t, missing.IsSet())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &missing))
}

func TestOptionalTime_Equal(t *testing.T) {
	now := time.Now()
	assert.True(t, NoTime().Equal(OptionalTime{}))
	assert.True(t, TimeOf(now).Equal(TimeOf(now)))
	assert.False(t, TimeOf(now).Equal(NoTime()))
	assert.False(t, TimeOf(now).Equal(TimeOf(now.Add(time.Second))))
}

func TestBlog_Clone(t *testing.T) {
	var nilBlog *Blog
	assert.Nil(t, nilBlog.Clone())

	b := &Blog{ID: "1"}
	c := b.Clone()
	assert.NotNil(t, c.Tags)
	assert.NotNil(t, c.Comments)

	b = testBlog("2")
	c = b.Clone()
	assert.Equal(t, b, c)
	c.Tags[0] = "changed"
	assert.Equal(t, "go", b.Tags[0])
}

func TestBlogPayload_Valid(t *testing.T) {
	assert.True(t, BlogPayload{Title: "t", Content: "c", Tags: []string{""}, Category: "x"}.valid())
	assert.False(t, BlogPayload{}.valid())
}
