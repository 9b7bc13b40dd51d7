package translator

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MimeLyc/srt-translator/internal/subtitle"
)

var itemHeader = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)

// noisePrefixes mark continuation lines that are commentary, not translation.
var noisePrefixes = []string{"Note:"}

// ParseNumberedResponse extracts exactly expected items numbered 1..expected
// from a model response and returns their decoded text in order.
func ParseNumberedResponse(response string, expected int) ([]string, error) {
	content := extractBlock(response)

	items := make(map[int]string)
	current := 0
	for _, line := range content {
		if m := itemHeader.FindStringSubmatch(line); m != nil {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &ParseError{Message: fmt.Sprintf("invalid item number: %s", m[1])}
			}
			if _, dup := items[num]; dup {
				return nil, &ParseError{Message: fmt.Sprintf("duplicate item number: %d", num)}
			}
			items[num] = m[2]
			current = num
			continue
		}

		if current == 0 {
			// heading or chatter before the first item
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isNoise(trimmed) {
			continue
		}
		if items[current] != "" {
			items[current] += "\n"
		}
		items[current] += trimmed
	}

	if err := validateItems(items, expected, content); err != nil {
		return nil, err
	}

	out := make([]string, expected)
	for n := 1; n <= expected; n++ {
		out[n-1] = subtitle.CompactText(DecodeNewlines(items[n]))
	}
	return out, nil
}

// extractBlock returns the lines strictly between BEGIN and the first END.
// When no BEGIN block yields content the whole response is used.
func extractBlock(response string) []string {
	lines := strings.Split(normalizeLineEndings(response), "\n")

	var block []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "BEGIN" {
			inBlock = true
			continue
		}
		if trimmed == "END" {
			break
		}
		if inBlock {
			block = append(block, line)
		}
	}

	if len(block) == 0 {
		return lines
	}
	return block
}

func isNoise(line string) bool {
	for _, p := range noisePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func validateItems(items map[int]string, expected int, content []string) error {
	found := make([]int, 0, len(items))
	for n := range items {
		found = append(found, n)
	}
	sort.Ints(found)

	var missing, extra []int
	for n := 1; n <= expected; n++ {
		if _, ok := items[n]; !ok {
			missing = append(missing, n)
		}
	}
	for _, n := range found {
		if n == 0 || n > expected {
			extra = append(extra, n)
		}
	}

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	return &ParseError{
		Message:  "invalid item numbers",
		Expected: expected,
		Found:    found,
		Missing:  missing,
		Extra:    extra,
		Sample:   truncateRunes(strings.Join(content, "\n"), sampleRunes),
	}
}
