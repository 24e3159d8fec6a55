package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encoderCache avoids re-building tiktoken encoders per call.
var encoderCache sync.Map // model -> *tiktoken.Tiktoken

// estimateTokens estimates the token count of text for a model. Models with a
// known tiktoken encoding are counted exactly; everything else falls back to
// the ~4 characters per token heuristic.
func estimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encoderFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicTokens(text)
}

// heuristicTokens is the provider-agnostic ~4 chars/token estimate used for
// the pre-flight ceiling check.
func heuristicTokens(text string) int {
	return (len(text) + 3) / 4
}

func encoderFor(model string) *tiktoken.Tiktoken {
	if model == "" {
		return nil
	}
	if cached, ok := encoderCache.Load(model); ok {
		return cached.(*tiktoken.Tiktoken)
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model or encoding data unavailable: remember the miss so
		// we do not retry on every estimate.
		encoderCache.Store(model, (*tiktoken.Tiktoken)(nil))
		return nil
	}
	encoderCache.Store(model, enc)
	return enc
}
