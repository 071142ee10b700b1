//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2beens/blogstore/internal/auth"
)

func (s *IntegrationTestSuite) loginRequest(ctx context.Context, username, password string) *http.Response {
	loginReqJson, err := json.Marshal(auth.Credentials{
		Username: username,
		Password: password,
	})
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/a/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, username string) string {
	resp := s.loginRequest(ctx, username, testPassword)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var loginResp auth.LoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&loginResp))
	s.Require().NotEmpty(loginResp.Token)
	return loginResp.Token
}

func (s *IntegrationTestSuite) TestLoginLogout() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := s.loginRequest(ctx, testUsername, "wrong")
	s.NoError(resp.Body.Close())
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	token := s.doLogin(ctx, testUsername)

	logout := func() int {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/a/logout", serverEndpoint), nil)
		s.Require().NoError(err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(auth.TokenHeader, token)
		resp, err := s.httpClient.Do(req)
		s.Require().NoError(err)
		s.NoError(resp.Body.Close())
		return resp.StatusCode
	}

	s.Equal(http.StatusOK, logout())
	s.Equal(http.StatusUnauthorized, logout())
}
