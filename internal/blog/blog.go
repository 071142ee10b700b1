package blog

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

type Blog struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Blogger     string       `json:"blogger"`
	Likes       int          `json:"likes"`
	Tags        []string     `json:"tags"`
	Category    string       `json:"category"`
	Comments    []string     `json:"comments"`
	UpdatedAt   OptionalTime `json:"updated_at"`
	CreatedDate time.Time    `json:"created_date"`
}

// Clone returns a deep copy, so stores never share slices with callers.
func (b *Blog) Clone() *Blog {
	if b == nil {
		return nil
	}
	c := *b
	c.Tags = slices.Clone(b.Tags)
	c.Comments = slices.Clone(b.Comments)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Comments == nil {
		c.Comments = []string{}
	}
	return &c
}

// BlogPayload is the user supplied part of a blog, used for both create and update.
type BlogPayload struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (p BlogPayload) valid() bool {
	return p.Title != "" && p.Content != "" && len(p.Tags) > 0 && p.Category != ""
}

// OptionalTime is either absent or holds a timestamp.
// The zero value is absent; it is encoded as JSON null.
type OptionalTime struct {
	t   time.Time
	set bool
}

func TimeOf(t time.Time) OptionalTime {
	return OptionalTime{t: t, set: true}
}

func NoTime() OptionalTime {
	return OptionalTime{}
}

func (o OptionalTime) Get() (time.Time, bool) {
	return o.t, o.set
}

func (o OptionalTime) IsSet() bool {
	return o.set
}

func (o OptionalTime) Equal(other OptionalTime) bool {
	if o.set != other.set {
		return false
	}
	return !o.set || o.t.Equal(other.t)
}

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.t)
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = OptionalTime{}
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*o = TimeOf(t)
	return nil
}
