// Package homophone asks a chat model for playful sound-alike renderings of
// English words in a target language.
package homophone

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const systemPrompt = "You are a translator."

// LanguageName returns the English display name of tag, e.g. "Chinese".
func LanguageName(tag language.Tag) string {
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// BuildPrompt renders the instruction sent for one batch of words. The words
// appear exactly as given so the model can echo them back as keys.
func BuildPrompt(words []string, target language.Tag) string {
	lang := LanguageName(target)
	var prompt strings.Builder

	prompt.WriteString("You are a \"homophone machine\". Turn every English word below (including code identifiers, abbreviations and meaningless letter groups) into a funny, sound-alike rendering written in " + lang + ".\n\n")

	prompt.WriteString("=== RULES ===\n")
	prompt.WriteString("1. Every word MUST get a non-empty rendering. Never return an empty string.\n")
	prompt.WriteString("2. Keys MUST be identical to the input words, including case (\"escapeHtml\" must not become \"escapehtml\").\n")
	prompt.WriteString("3. Renderings may be exaggerated or absurd, but should sound as close to the original as possible.\n")
	prompt.WriteString("4. Onomatopoeia is welcome.\n")
	prompt.WriteString("5. Return ONLY a JSON object. No extra text, comments or markdown.\n")

	if base, _ := target.Base(); base.String() == "zh" {
		prompt.WriteString("\n=== EXAMPLE ===\n")
		prompt.WriteString("Input: [\"px\", \"div\", \"escapeHtml\", \"public\"]\n")
		prompt.WriteString("Output: {\"px\": \"屁克斯\", \"div\": \"弟五\", \"escapeHtml\": \"一死凯普嗨特妹儿\", \"public\": \"啪不里克\"}\n")
	}

	if hints := pronunciationHints(words); hints != "" {
		prompt.WriteString("\n=== PRONUNCIATION HINTS (Double Metaphone) ===\n")
		prompt.WriteString(hints)
	}

	pairs := make([]string, 0, len(words))
	for _, w := range words {
		pairs = append(pairs, fmt.Sprintf("%s: \"\"", strconv.Quote(w)))
	}
	prompt.WriteString("\n=== WORDS ===\n")
	prompt.WriteString(strings.Join(pairs, ", "))
	prompt.WriteString("\n\nReturn the JSON object now:\n")

	return prompt.String()
}

func pronunciationHints(words []string) string {
	var b strings.Builder
	for _, w := range words {
		primary, secondary := matchr.DoubleMetaphone(w)
		if primary == "" {
			continue
		}
		b.WriteString("- " + w + ": " + primary)
		if secondary != "" && secondary != primary {
			b.WriteString(" / " + secondary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
