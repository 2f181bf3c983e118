package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  NewConfigurationError("problem unbound"),
			want: "problem unbound",
		},
		{
			name: "with component and op",
			err:  NewDataFormatError("ObjV is 2x2, want 2x1").WithComponent("multitask").WithOperation("evaluate"),
			want: "multitask: evaluate: ObjV is 2x2, want 2x1",
		},
		{
			name: "wrapped",
			err:  WrapError(errors.New("boom"), "evaluation failed").WithComponent("runner"),
			want: "runner: evaluation failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindClassification(t *testing.T) {
	cfgErr := NewConfigurationErrorf("task %d has no bound problem", 3)
	assert.True(t, IsConfigurationError(cfgErr))
	assert.False(t, IsDataFormatError(cfgErr))

	fmtErr := NewDataFormatError("CV has 3 rows for 2 individuals")
	assert.True(t, IsDataFormatError(fmtErr))
	assert.False(t, IsConfigurationError(fmtErr))

	assert.False(t, IsConfigurationError(nil))
	assert.False(t, IsConfigurationError(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NewDataFormatError("bad shape")
	outer := fmt.Errorf("run failed: %w", inner)
	assert.True(t, IsDataFormatError(outer))

	var e *Error
	require.True(t, errors.As(outer, &e))
	assert.Equal(t, KindDataFormat, e.Kind)

	rewrapped := WrapError(inner, "task 1 evaluation failed").WithComponent("multitask")
	assert.True(t, IsDataFormatError(rewrapped))
	assert.False(t, IsConfigurationError(rewrapped))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))
	assert.Nil(t, WrapErrorf(nil, "ignored %d", 1))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	wrapped := WrapError(inner, "context")
	assert.ErrorIs(t, wrapped, inner)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "data format", KindDataFormat.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
