package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(nil))
	require.Equal(t, KindNotFound, KindOf(New(KindNotFound, "missing")))
	require.Equal(t, KindConflict, KindOf(Newf(KindConflict, "dup %d", 7)))

	// 未分类的底层错误视为存储层错误
	require.Equal(t, KindStorage, KindOf(errors.New("connection refused")))
}

func TestKindOf_UnwrapsChain(t *testing.T) {
	inner := New(KindForbidden, "no access")
	wrapped := fmt.Errorf("handling request: %w", inner)
	require.Equal(t, KindForbidden, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindForbidden))
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStorage, "write failed", cause)
	require.Equal(t, "write failed: disk full", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, IsKind(err, KindStorage))
}
