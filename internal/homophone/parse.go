package homophone

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedOutput is returned when the model reply is not a JSON object of
// strings.
var ErrMalformedOutput = errors.New("malformed homophone output")

var (
	thinkingBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>|<thinking>.*?</thinking>`)
	codeFenceRe     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// ParseOutput decodes the model reply into word → homophone. Reasoning blocks,
// markdown fences and chatter around the outermost object are tolerated;
// anything else is ErrMalformedOutput.
func ParseOutput(content string) (map[string]string, error) {
	text := thinkingBlockRe.ReplaceAllString(content, "")
	text = strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedOutput)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no json object in %q", ErrMalformedOutput, truncate(text, 80))
	}

	var ret map[string]string
	if err := json.Unmarshal([]byte(text[start:end+1]), &ret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if ret == nil {
		ret = map[string]string{}
	}
	return ret, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
