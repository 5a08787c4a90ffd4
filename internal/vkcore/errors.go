package vkcore

import (
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// Error wraps a non-success vk.Result with the caller that observed it.
// Every driver-call wrapper in this module funnels failures through here so
// that a fatal initialization or per-frame error carries a frame
// of context instead of a bare result code.
type Error struct {
	Result vk.Result
	Caller string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vulkan error: %d at %s", e.Result, e.Caller)
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError captures the immediate caller of the failing vk.* invocation.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		return &Error{Result: ret, Caller: "unknown"}
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return &Error{Result: ret, Caller: fmt.Sprintf("%s (%s:%d)", name, file, line)}
}

// check turns a vk.Result into an error, or nil on vk.Success. Call sites
// look like `if err := check(vk.CreateBuffer(...)); err != nil { ... }`.
func check(ret vk.Result) error {
	if isError(ret) {
		return newError(ret)
	}
	return nil
}

// CheckResult is check's exported form, for callers outside this package
// (display.Display's swapchain calls) that still want the same wrapped
// *Error shape.
func CheckResult(ret vk.Result) error {
	return check(ret)
}

// checkErr recovers a panic raised by orPanic into *err, a defer-based
// fatal-path idiom for the few call sites (Context construction) where a
// failure has no sane local recovery.
func checkErr(err *error) {
	if v := recover(); v != nil {
		switch e := v.(type) {
		case error:
			*err = e
		default:
			*err = fmt.Errorf("%+v", v)
		}
	}
}

func orPanic(err error) {
	if err != nil {
		panic(err)
	}
}
