package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectMatchesEveryTokenCaseInsensitively(t *testing.T) {
	for _, tok := range vocabulary {
		title := strings.ToUpper(tok[:1]) + tok[1:]
		for _, variant := range []string{tok, strings.ToUpper(tok), title} {
			assert.Equal(t, ErrorLike, Inspect("https://example.com/"+variant, ""), "url variant %q", variant)
			assert.Equal(t, ErrorLike, Inspect("https://example.com/", "Page said: "+variant), "text variant %q", variant)
		}
	}
}

func TestInspectClean(t *testing.T) {
	url := "http://www.seacargotracking.net/track"
	text := "Voyage: HMM MIR 0012W, Arrival: 2025-09-14"
	assert.Equal(t, Clean, Inspect(url, text))
	assert.Equal(t, Clean, Inspect("", ""))
}

func TestInspectMatchesInsideWords(t *testing.T) {
	// Substring matching is intentional even when over-eager.
	assert.Equal(t, ErrorLike, Inspect("", "terrors of the sea"))
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "clean", Clean.String())
	assert.Equal(t, "error-like", ErrorLike.String())
}
