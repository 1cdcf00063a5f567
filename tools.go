//go:build tools

// Package trainbot pins build-time tools such as mockgen in go.mod so that
// `go generate ./...` works on a fresh checkout.
package trainbot

import (
	_ "go.uber.org/mock/mockgen"
)
