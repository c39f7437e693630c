package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func echoCaps() Capabilities[string, string] {
	return Capabilities[string, string]{
		Name: "test",
		Build: func(ctx context.Context, in string) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, "http://provider.test/"+in, nil)
		},
		Confirm: func(body []byte) error {
			if !strings.HasPrefix(string(body), "ok") {
				return &ResponseError{Provider: "test", Message: "bad payload"}
			}
			return nil
		},
		Parse: func(body []byte) (string, error) {
			return strings.TrimPrefix(string(body), "ok:"), nil
		},
	}
}

func TestCallSuccess(t *testing.T) {
	calls := 0
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		assert.Equal(t, "/ping", req.URL.Path)
		return response(http.StatusOK, "ok:pong"), nil
	})))

	out, err := Call(context.Background(), c, echoCaps(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesNon2xxThenSucceeds(t *testing.T) {
	calls := 0
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 4 {
			return response(http.StatusBadGateway, ""), nil
		}
		return response(http.StatusOK, "ok:done"), nil
	})))

	out, err := Call(context.Background(), c, echoCaps(), "job")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 4, calls)
}

func TestCallExhaustsRetryBudget(t *testing.T) {
	calls := 0
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return response(http.StatusServiceUnavailable, ""), nil
	})))

	_, err := Call(context.Background(), c, echoCaps(), "job")
	var codeErr *ResponseCodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, http.StatusServiceUnavailable, codeErr.StatusCode)
	assert.Equal(t, 7, codeErr.Attempts)
	assert.Equal(t, 7, calls)
}

func TestCallTimeoutsShareCounterWithStatusFailures(t *testing.T) {
	calls := 0
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls%2 == 0 {
			return nil, timeoutError{}
		}
		return response(http.StatusInternalServerError, ""), nil
	})))

	_, err := Call(context.Background(), c, echoCaps(), "job")
	var codeErr *ResponseCodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 7, calls)
	// seventh attempt is odd, so it ended on a status failure
	assert.Equal(t, http.StatusInternalServerError, codeErr.StatusCode)
}

func TestCallPayloadFailureIsNotRetried(t *testing.T) {
	calls := 0
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return response(http.StatusOK, "error"), nil
	})))

	_, err := Call(context.Background(), c, echoCaps(), "job")
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, 1, calls)
}

func TestCallCheckStatusIsTerminal(t *testing.T) {
	calls := 0
	caps := echoCaps()
	caps.CheckStatus = func(status int, body []byte) error {
		if status == http.StatusPaymentRequired {
			return &ResourceError{Provider: "test", Message: "payment required"}
		}
		return nil
	}
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return response(http.StatusPaymentRequired, ""), nil
	})))

	_, err := Call(context.Background(), c, caps, "job")
	assert.True(t, IsResourceError(err))
	assert.Equal(t, 1, calls)
}

func TestCallTransportErrorReturnsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	c := New(WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, boom
	})))

	_, err := Call(context.Background(), c, echoCaps(), "job")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestCallRespectsMaxRetriesOption(t *testing.T) {
	calls := 0
	c := New(WithMaxRetries(2), WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return nil, timeoutError{}
	})))

	_, err := Call(context.Background(), c, echoCaps(), "job")
	var codeErr *ResponseCodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Zero(t, codeErr.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestCallStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	c := New(WithRetryDelay(time.Hour), WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		cancel()
		return response(http.StatusInternalServerError, ""), nil
	})))

	_, err := Call(ctx, c, echoCaps(), "job")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCallRejectsIncompleteCapabilities(t *testing.T) {
	_, err := Call(context.Background(), New(), Capabilities[string, string]{Name: "broken"}, "x")
	require.Error(t, err)
}
