package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeData, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeProtocol, "GraphQL: boom")
	outer := Wrap(inner, ErrorTypeItem, "detail")

	require.NotEmpty(t, inner.Stack)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.Equal(t, "item: detail: protocol: GraphQL: boom", outer.Error())
}

func TestIsTypeForeignError(t *testing.T) {
	err := fmt.Errorf("plain")
	assert.False(t, IsType(err, ErrorTypeInternal))
	assert.Equal(t, ErrorTypeInternal, TypeOf(err))
	assert.Equal(t, 500, StatusOf(err))
}

func TestStatusThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("run: %w", New(ErrorTypeTransport, "HTTP 401").WithStatus(401))
	assert.Equal(t, 401, StatusOf(err))
	assert.True(t, IsType(err, ErrorTypeTransport))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeUnsupported, "%s is not a supported report", "Foo")
	assert.Equal(t, "unsupported: Foo is not a supported report", err.Error())
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "HTTP 404", MessageOf(New(ErrorTypeTransport, "HTTP 404")))
	assert.Equal(t, "HTTP 404", MessageOf(fmt.Errorf("ctx: %w", New(ErrorTypeTransport, "HTTP 404"))))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
}
