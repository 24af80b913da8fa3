package kakao

import "github.com/rotisserie/eris"

var (
	// ErrRateLimited means no rate limit permit became available within the
	// wait window. Safe to retry on a later trigger, never retried in-line.
	ErrRateLimited = eris.New("kakao: rate limit exceeded")

	// ErrBadRequest is a 4xx response. Permanent; never retried.
	ErrBadRequest = eris.New("kakao: bad request")

	// ErrServerError is a 5xx response that survived all retries.
	ErrServerError = eris.New("kakao: server error")

	// ErrTimeout is a connect or response timeout that survived all retries.
	ErrTimeout = eris.New("kakao: timeout")
)
