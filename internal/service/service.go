// Package service rewrites free text by replacing every English word with its
// homophone while keeping everything between the words intact.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/MimeLyc/xieyin/internal/segment"
	"github.com/MimeLyc/xieyin/pkg/log"
)

// ErrLookupFailed marks failures of the homophone lookup.
var ErrLookupFailed = errors.New("homophone lookup failed")

// Resolver maps word occurrences to homophones, one output per input.
type Resolver interface {
	Resolve(ctx context.Context, words []string) ([]string, error)
}

// Result is the outcome of one rewrite.
type Result struct {
	OriginalArticle  string
	OriginalWords    []string
	TranslatedWords  []string
	AssembledResult  string
	DetectedLanguage string
}

type Service struct {
	resolver Resolver
}

func New(resolver Resolver) *Service {
	return &Service{resolver: resolver}
}

// Translate splits text into words and separators, resolves the words and
// stitches the result back together. Empty text yields an empty result.
func (s *Service) Translate(ctx context.Context, text string) (*Result, error) {
	seg := segment.Split(text)
	log.Debug("Split %d words and %d separators", len(seg.Words), len(seg.Separators))

	translated, err := s.resolver.Resolve(ctx, seg.Words)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	log.Debug("Translated words: %v", translated)

	return &Result{
		OriginalArticle:  text,
		OriginalWords:    seg.Words,
		TranslatedWords:  translated,
		AssembledResult:  seg.Assemble(translated),
		DetectedLanguage: DetectLanguage(text),
	}, nil
}

// DetectLanguage returns the ISO 639-1 code of the dominant language of text,
// or "und" when detection is not reliable.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return language.Und.String()
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return language.Und.String()
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return language.Und.String()
	}
	return code
}
