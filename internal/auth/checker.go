package auth

import "context"

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

//go:generate mockgen -source=$GOFILE -destination=../middleware/checker_mocks_test.go -package=middleware_test

type Checker interface {
	// IsLogged returns the username owning the session token, if the session is alive.
	IsLogged(ctx context.Context, token string) (username string, logged bool, err error)
}
