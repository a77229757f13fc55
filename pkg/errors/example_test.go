package errors_test

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/nebula-domo/pkg/errors"
)

// Example demonstrates basic error creation with a reported status.
func Example() {
	err := errors.New(errors.ErrorTypeTransport, "HTTP 503").
		WithStatus(503).
		WithDetail("report", "Users")

	fmt.Println(err.Error())
	fmt.Println(errors.StatusOf(err))

	// Output:
	// transport: HTTP 503
	// 503
}

// ExampleWrap shows how wrapping keeps the cause and the status.
func ExampleWrap() {
	inner := errors.New(errors.ErrorTypeTransport, "HTTP 404").WithStatus(404)
	err := errors.Wrap(inner, errors.ErrorTypeItem, "detail fetch failed").
		WithDetail("id", "tmpl-1")

	fmt.Println(errors.IsType(err, errors.ErrorTypeItem))
	fmt.Println(errors.StatusOf(err))

	// Output:
	// true
	// 404
}

// ExampleStatusOf shows the default status for errors without one.
func ExampleStatusOf() {
	wrapped := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeParse, "Invalid JSON")

	fmt.Println(errors.StatusOf(wrapped))
	fmt.Println(stderrors.Is(wrapped, io.ErrUnexpectedEOF))
	fmt.Println(errors.TypeOf(io.EOF))

	// Output:
	// 500
	// true
	// internal
}
