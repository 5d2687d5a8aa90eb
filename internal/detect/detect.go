// Package detect classifies post-action page state as clean or error-like.
//
// Classification is deliberately conservative substring matching: an
// unnecessary retry is cheaper than reporting a failed tracking attempt as
// successful.
package detect

import "strings"

type Signal int

const (
	Clean Signal = iota
	ErrorLike
)

func (s Signal) String() string {
	if s == ErrorLike {
		return "error-like"
	}
	return "clean"
}

// Failure vocabulary matched against the current URL and visible page text.
var vocabulary = []string{
	"error",
	"failed",
	"invalid",
	"incorrect",
	"unable",
	"blocked",
}

// Inspect returns ErrorLike when any vocabulary token appears, case
// insensitively, in either the URL or the visible text.
func Inspect(url, text string) Signal {
	url = strings.ToLower(url)
	text = strings.ToLower(text)
	for _, tok := range vocabulary {
		if strings.Contains(url, tok) || strings.Contains(text, tok) {
			return ErrorLike
		}
	}
	return Clean
}
