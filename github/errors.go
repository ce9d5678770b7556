package github

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gh "github.com/google/go-github/v57/github"

	"repodash/apierror"
)

// classify maps a go-github or transport failure to an *apierror.Error.
// Errors that are already classified pass through unchanged.
func classify(err error, now time.Time) error {
	if err == nil {
		return nil
	}

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return apierror.New(apierror.KindCanceled, err)
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		reset := rateErr.Rate.Reset.Time
		return &apierror.Error{Kind: apierror.KindRateLimited, Status: statusOf(rateErr.Response), RetryAfter: &reset, Err: err}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		e := &apierror.Error{Kind: apierror.KindRateLimited, Status: statusOf(abuseErr.Response), Err: err}
		if abuseErr.RetryAfter != nil {
			at := now.Add(*abuseErr.RetryAfter)
			e.RetryAfter = &at
		}
		return e
	}

	var otpErr *gh.TwoFactorAuthError
	if errors.As(err, &otpErr) {
		return &apierror.Error{Kind: apierror.KindAuth, Status: statusOf(otpErr.Response), Err: err}
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) {
		return fromStatus(respErr.Response, err, now)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apierror.New(apierror.KindDecode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apierror.New(apierror.KindTransport, err)
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return apierror.New(apierror.KindTransport, err)
	}

	return apierror.New(apierror.KindUnknown, err)
}

func fromStatus(resp *http.Response, err error, now time.Time) error {
	status := statusOf(resp)
	e := &apierror.Error{Status: status, Err: err}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = apierror.KindAuth
	case status == http.StatusNotFound || status == http.StatusGone:
		e.Kind = apierror.KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = apierror.KindRateLimited
		e.RetryAfter = retryAfter(resp, now)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		e.Kind = apierror.KindUnavailable
		e.RetryAfter = retryAfter(resp, now)
	default:
		e.Kind = apierror.KindUnknown
	}
	return e
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func retryAfter(resp *http.Response, now time.Time) *time.Time {
	if resp == nil {
		return nil
	}
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		at := now.Add(time.Duration(secs) * time.Second)
		return &at
	}
	if at, err := http.ParseTime(raw); err == nil {
		return &at
	}
	return nil
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classifyGraphQL maps the structured error type of a GraphQL response.
func classifyGraphQL(errs []graphQLError) error {
	first := errs[0]
	err := errors.New(first.Message)
	switch first.Type {
	case "NOT_FOUND":
		return apierror.New(apierror.KindNotFound, err)
	case "FORBIDDEN", "INSUFFICIENT_SCOPES":
		return apierror.New(apierror.KindAuth, err)
	case "RATE_LIMITED":
		return apierror.New(apierror.KindRateLimited, err)
	default:
		return apierror.New(apierror.KindUnknown, err)
	}
}
