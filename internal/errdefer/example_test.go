package errdefer_test

import (
	"io"
	"os"

	"go.abhg.dev/lazyhl/internal/errdefer"
)

func readSource(name string) (_ string, err error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer errdefer.Close(&err, f)
	// NOTE: err must be a named return.

	bs, err := io.ReadAll(f)
	return string(bs), err
}

func ExampleClose() {
	if _, err := readSource("example_test.go"); err != nil {
		panic(err)
	}
}
