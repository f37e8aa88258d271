package sentiment

import (
	"fmt"
	"strings"
)

// DefaultMaxChunkLength is the usual input ceiling of BERT-style models.
const DefaultMaxChunkLength = 512

// Codec converts text into the classifier's native token units and back.
type Codec interface {
	Encode(text string) []string
	Decode(tokens []string) string
}

// RuneCodec treats every rune as one token, matching character-level
// Chinese BERT vocabularies.
type RuneCodec struct{}

// Encode implements Codec.
func (RuneCodec) Encode(text string) []string {
	runes := []rune(text)
	tokens := make([]string, len(runes))
	for i, r := range runes {
		tokens[i] = string(r)
	}
	return tokens
}

// Decode implements Codec.
func (RuneCodec) Decode(tokens []string) string {
	return strings.Join(tokens, "")
}

// WordCodec splits on whitespace.
type WordCodec struct{}

// Encode implements Codec.
func (WordCodec) Encode(text string) []string {
	return strings.Fields(text)
}

// Decode implements Codec.
func (WordCodec) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Chunk is a token range [Start, End) of an encoded text.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// String returns a debug representation, e.g. Chunk(1)[512:1024].
func (c Chunk) String() string {
	return fmt.Sprintf("Chunk(%d)[%d:%d]", c.Index, c.Start, c.End)
}

// Len returns the number of tokens in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Split cuts tokens into consecutive chunks of at most maxLen tokens. The
// ranges cover the token sequence exactly once, in order. maxLen <= 0 uses
// DefaultMaxChunkLength.
func Split(tokens []string, maxLen int, codec Codec) []Chunk {
	if len(tokens) == 0 {
		return nil
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLength
	}
	if codec == nil {
		codec = RuneCodec{}
	}

	chunks := make([]Chunk, 0, (len(tokens)+maxLen-1)/maxLen)
	for start := 0; start < len(tokens); start += maxLen {
		end := min(start+maxLen, len(tokens))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  codec.Decode(tokens[start:end]),
		})
	}
	return chunks
}
