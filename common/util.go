package common

import "fmt"

func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Assert panics with the formatted message if cond is false. It is meant for conditions that can only be violated by
// a bug or by corrupted bytes, never by caller input.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Contains tells whether arr contains x.
func Contains[T comparable](arr []T, x T) bool {
	for _, n := range arr {
		if x == n {
			return true
		}
	}
	return false
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
