package errclass

import "testing"

func TestClassify_KnownStatusCodes(t *testing.T) {
	cases := []struct {
		status        int
		wantType      ErrorType
		wantRetryable bool
	}{
		{401, ErrorTypeAuthentication, false},
		{403, ErrorTypeAuthorization, false},
		{404, ErrorTypeNotFound, false},
		{408, ErrorTypeTimeout, true},
		{429, ErrorTypeRateLimit, true},
		{400, ErrorTypeClient, false},
		{500, ErrorTypeServer, true},
		{503, ErrorTypeServer, true},
		{999, ErrorTypeUnknown, false},
	}
	for _, c := range cases {
		gotType, gotRetryable := Classify(c.status)
		if gotType != c.wantType || gotRetryable != c.wantRetryable {
			t.Errorf("Classify(%d) = (%s, %v), want (%s, %v)", c.status, gotType, gotRetryable, c.wantType, c.wantRetryable)
		}
	}
}

func TestNewStatusError_ClassifiesInternally(t *testing.T) {
	err := NewStatusError(503, "service unavailable")
	if err.Type != ErrorTypeServer || !err.Retryable {
		t.Errorf("expected a retryable server error, got type=%s retryable=%v", err.Type, err.Retryable)
	}
	if !err.IsRetryable() || err.GetErrorType() != ErrorTypeServer {
		t.Error("expected RetryableError methods to reflect classification")
	}
}

func TestNetworkError_AlwaysRetryableAndUnwraps(t *testing.T) {
	inner := errTestSentinel{}
	err := &NetworkError{Err: inner}
	if !err.IsRetryable() {
		t.Error("expected NetworkError to always be retryable")
	}
	if err.GetErrorType() != ErrorTypeNetwork {
		t.Errorf("expected ErrorTypeNetwork, got %s", err.GetErrorType())
	}
	if err.Unwrap() != inner {
		t.Error("expected Unwrap to return the wrapped error")
	}
}

type errTestSentinel struct{}

func (errTestSentinel) Error() string { return "sentinel" }
