package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCategoriesMatchWithIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
	}{
		{"config", ConfigError("bad"), ErrConfig},
		{"missing field", MissingFieldError("registry s3", "bucket"), ErrConfig},
		{"ambiguous", AmbiguousIntentError("api"), ErrAmbiguousIntent},
		{"git", GitError(fmt.Errorf("boom"), "tag failed"), ErrGit},
		{"upload", UploadErrorf(fmt.Errorf("503"), "put failed"), ErrUpload},
		{"validation", ValidationErrorf("bad %s", "semver"), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("project api: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.target))
			assert.False(t, stderrors.Is(wrapped, ErrFileSystem))
		})
	}
}

func TestAmbiguousIntentMessageTellsCallerWhatToSupply(t *testing.T) {
	err := AmbiguousIntentError("web")
	assert.Contains(t, err.Error(), "explicit version or bump type")
	assert.Contains(t, err.Error(), "web")
}

func TestMissingFieldErrorNamesField(t *testing.T) {
	err := MissingFieldError("registry nexus", "repository")
	assert.Contains(t, err.Error(), `"repository"`)

	v, ok := ContextValue(fmt.Errorf("wrapped: %w", err), "field")
	require.True(t, ok)
	assert.Equal(t, "repository", v)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeGit, SeverityHigh, "x"))
}

func TestDetailedStringSortsContext(t *testing.T) {
	err := UploadErrorf(fmt.Errorf("forbidden"), "upload failed").
		WithContext("status", 403).
		WithContext("registry", "s3")

	out := err.DetailedString()
	assert.Contains(t, out, "[HIGH] [UPLOAD] upload failed")
	assert.Contains(t, out, "Caused by: forbidden")
	assert.Less(t, indexOf(out, "registry"), indexOf(out, "status"))
}

func TestSeverityAndType(t *testing.T) {
	assert.Equal(t, ErrorTypeGit, GetType(GitError(fmt.Errorf("x"), "y")))
	assert.Equal(t, ErrorTypeInternal, GetType(fmt.Errorf("plain")))
	assert.True(t, IsFatal(InternalErrorf("bad state")))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", InternalErrorf("bad state"))))
	assert.False(t, IsFatal(ConfigError("bad")))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestStackTraceOnlyForCritical(t *testing.T) {
	assert.Empty(t, ConfigError("bad").StackTrace)

	err := InternalErrorf("plan for %s missing", "api")
	assert.Contains(t, err.StackTrace, "TestStackTraceOnlyForCritical")
	assert.Contains(t, err.DetailedString(), "Stack trace:")
	assert.Equal(t, "INTERNAL", err.Type.String())
	assert.Equal(t, "CRITICAL", err.Severity.String())
}
