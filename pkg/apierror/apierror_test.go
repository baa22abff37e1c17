package apierror_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jimyag/hostagent/pkg/apierror"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		testFunc func(*testing.T)
	}{
		{
			name: "Error_Error",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.NewError("TestError", "test message")
				assert.Equal(t, "[TestError] test message", err.Error())
			},
		},
		{
			name: "Error_Error_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.WrapError(apierror.ErrIO, "test message", fmt.Errorf("raw error"))
				assert.Equal(t, "[IOFailure] test message (RawError: raw error)", err.Error())
			},
		},
		{
			name: "Error_Is_WithPredefinedError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.Invalidf("bad type %s", "FOO")
				assert.True(t, errors.Is(err, apierror.ErrInvalidParameter))
				assert.False(t, errors.Is(err, apierror.ErrIO))
			},
		},
		{
			name: "Error_Is_ThroughWrap",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := fmt.Errorf("copy template: %w", apierror.Invariantf("left %s", "x.tmp"))
				assert.True(t, errors.Is(err, apierror.ErrInvariant))
			},
		},
		{
			name: "Error_Unwrap_WithRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				rawErr := fmt.Errorf("connection refused")
				err := apierror.IO("download failed", rawErr)
				assert.Equal(t, rawErr, errors.Unwrap(err))
				assert.Equal(t, "download failed: connection refused", err.Message)
			},
		},
		{
			name: "Error_JSON_Marshal_ExcludesRawError",
			testFunc: func(t *testing.T) {
				t.Parallel()
				err := apierror.WrapError(apierror.ErrIO, "test message", fmt.Errorf("raw error"))
				jsonData, marshalErr := json.Marshal(err)
				assert.NoError(t, marshalErr)
				assert.NotContains(t, string(jsonData), "raw error")
				assert.Contains(t, string(jsonData), `"code":"IOFailure"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}

func TestDetail(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("disk full"), want: "disk full"},
		{name: "api error", err: apierror.Unsupportedf("Unsupported URI scheme ftp"), want: "Unsupported URI scheme ftp"},
		{name: "wrapped api error", err: fmt.Errorf("stage: %w", apierror.NotFoundf("no pool p1")), want: "no pool p1"},
	}

	for _, tc := range testcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, apierror.Detail(tc.err))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	resp := apierror.NewErrorResponse("req-1", apierror.ErrMalformedCommand)
	assert.Equal(t, "RequestID: req-1; [MalformedCommand] The request body is not a valid command.", resp.Error())

	data, err := json.Marshal(resp)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"requestID":"req-1"`)
}
