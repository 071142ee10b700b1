//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/2beens/blogstore/internal/auth"
	"github.com/2beens/blogstore/internal/blog"
)

func (s *IntegrationTestSuite) blogRequest(
	ctx context.Context,
	method, path, authToken string,
	body any,
) (int, []byte) {
	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set(auth.TokenHeader, authToken)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) decodeBlog(respBytes []byte) *blog.Blog {
	b := &blog.Blog{}
	s.Require().NoError(json.Unmarshal(respBytes, b), string(respBytes))
	return b
}

func (s *IntegrationTestSuite) countBlogRecords() int {
	var count int
	s.Require().NoError(s.DB.QueryRow(`SELECT count(*) FROM blog_record;`).Scan(&count))
	return count
}

func (s *IntegrationTestSuite) TestBlogs() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := blog.BlogPayload{
		Title:    gofakeit.Sentence(4),
		Content:  gofakeit.Paragraph(2, 3, 10, " "),
		Tags:     []string{"go", "integration"},
		Category: "testing",
	}

	status, _ := s.blogRequest(ctx, "POST", "/blog", "", payload)
	s.Equal(http.StatusUnauthorized, status)

	status, respBytes := s.blogRequest(ctx, "GET", "/blog/all", "", nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal("no blogs found, please add them first\n", string(respBytes))

	ownerToken := s.doLogin(ctx, testUsername)
	otherToken := s.doLogin(ctx, otherUsername)

	status, respBytes = s.blogRequest(ctx, "POST", "/blog", ownerToken, payload)
	s.Require().Equal(http.StatusCreated, status, string(respBytes))
	created := s.decodeBlog(respBytes)
	s.Equal(testUsername, created.Blogger)
	s.Equal(1, s.countBlogRecords())

	blogPath := fmt.Sprintf("/blog/%s", created.ID)

	status, _ = s.blogRequest(ctx, "PATCH", blogPath+"/like", ownerToken, nil)
	s.Equal(http.StatusForbidden, status)

	status, respBytes = s.blogRequest(ctx, "PATCH", blogPath+"/like", otherToken, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(1, s.decodeBlog(respBytes).Likes)

	status, _ = s.blogRequest(ctx, "POST", blogPath+"/comments", "", map[string]string{"comment": "anonymous says hi"})
	s.Equal(http.StatusCreated, status)

	status, respBytes = s.blogRequest(ctx, "GET", blogPath+"/comments", "", nil)
	s.Require().Equal(http.StatusOK, status)
	var comments []string
	s.Require().NoError(json.Unmarshal(respBytes, &comments))
	s.Equal([]string{"anonymous says hi"}, comments)

	updatePayload := payload
	updatePayload.Title = "updated title"
	status, _ = s.blogRequest(ctx, "PUT", blogPath, otherToken, updatePayload)
	s.Equal(http.StatusUnauthorized, status)

	status, respBytes = s.blogRequest(ctx, "PUT", blogPath, ownerToken, updatePayload)
	s.Require().Equal(http.StatusOK, status)
	updated := s.decodeBlog(respBytes)
	s.Equal("updated title", updated.Title)
	s.True(updated.UpdatedAt.IsSet())
	s.Equal(1, updated.Likes)

	status, respBytes = s.blogRequest(ctx, "GET", "/blog/search/tags?q=INTEGRATION", "", nil)
	s.Require().Equal(http.StatusOK, status)
	var found []*blog.Blog
	s.Require().NoError(json.Unmarshal(respBytes, &found))
	s.Len(found, 1)

	status, _ = s.blogRequest(ctx, "GET", "/blog/search/text?q=nothing-like-this", "", nil)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.blogRequest(ctx, "DELETE", blogPath, otherToken, nil)
	s.Equal(http.StatusUnauthorized, status)

	status, respBytes = s.blogRequest(ctx, "DELETE", blogPath, ownerToken, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(created.ID, s.decodeBlog(respBytes).ID)
	s.Equal(0, s.countBlogRecords())

	status, _ = s.blogRequest(ctx, "GET", blogPath, "", nil)
	s.Equal(http.StatusNotFound, status)
}
