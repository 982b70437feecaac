// Package segment splits text into alternating word and separator runs and
// stitches a replacement word sequence back into the original shape.
package segment

import "strings"

// Segmentation is the compact form of a text: its word runs, its separator
// runs, and which kind came first. Words are maximal [A-Za-z]+ runs; every
// other byte belongs to a separator run.
type Segmentation struct {
	Words          []string
	Separators     []string
	StartsWithWord bool
}

// Split classifies text in a single left-to-right pass. Classification is by
// byte, so multi-byte UTF-8 sequences always stay inside one separator run.
func Split(text string) Segmentation {
	seg := Segmentation{
		Words:          []string{},
		Separators:     []string{},
		StartsWithWord: len(text) > 0 && isLetter(text[0]),
	}

	start := 0
	for i := 1; i <= len(text); i++ {
		if i < len(text) && isLetter(text[i]) == isLetter(text[start]) {
			continue
		}
		run := text[start:i]
		if isLetter(text[start]) {
			seg.Words = append(seg.Words, run)
		} else {
			seg.Separators = append(seg.Separators, run)
		}
		start = i
	}

	return seg
}

// Runs returns the word and separator runs in their original interleaved
// order. Joining the result yields the text passed to Split.
func (s Segmentation) Runs() []string {
	return interleave(s.Separators, s.StartsWithWord, s.Words, false)
}

// Assemble replaces every word with the translation at the same index.
func (s Segmentation) Assemble(translations []string) string {
	return Assemble(s.Separators, s.StartsWithWord, translations)
}

// Assemble interleaves translations and separators.
//
// When the text started with a word, emission stops as soon as translations
// are exhausted: separators beyond the last translation's partner are dropped.
// When the text started with a separator, both sequences are drained fully.
func Assemble(separators []string, startsWithWord bool, translations []string) string {
	return strings.Join(interleave(separators, startsWithWord, translations, true), "")
}

func interleave(separators []string, startsWithWord bool, words []string, dropTail bool) []string {
	ret := make([]string, 0, len(separators)+len(words))
	wi, si := 0, 0

	if startsWithWord {
		for wi < len(words) {
			ret = append(ret, words[wi])
			wi++
			if si < len(separators) {
				ret = append(ret, separators[si])
				si++
			}
		}
		if !dropTail {
			ret = append(ret, separators[si:]...)
		}
		return ret
	}

	for si < len(separators) || wi < len(words) {
		if si < len(separators) {
			ret = append(ret, separators[si])
			si++
		}
		if wi < len(words) {
			ret = append(ret, words[wi])
			wi++
		}
	}
	return ret
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
