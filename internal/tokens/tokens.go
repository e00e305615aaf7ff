// Package tokens estimates token counts for prompt and file content.
package tokens

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func getCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("tokenizer unavailable, falling back to word count")
			return
		}
		codec = c
	})
	return codec
}

// Count returns the token count of text. When the BPE codec cannot be
// loaded it degrades to a whitespace word count; counts only feed change
// significance thresholds, so a rough estimate beats an error.
func Count(text string) int {
	if c := getCodec(); c != nil {
		if n, err := c.Count(text); err == nil {
			return n
		}
	}
	return len(strings.Fields(text))
}
