// Package commands condenses a burst of short crowd commands into a single
// synthesized prompt for the code-generation platform. Commands are
// normalized, counted, filtered by minimum support, and summarized so the
// platform sees consensus instead of raw chat.
package commands

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// TopCommand is one surviving command with its vote count. Text keeps the
// casing of the first occurrence.
type TopCommand struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Synthesized is the condensed form of a command window.
type Synthesized struct {
	Summary     string       `json:"summary"`
	TopCommands []TopCommand `json:"topCommands"`
	RawCommands []string     `json:"rawCommands"`
}

var commandWS = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a command for frequency counting: lowercase,
// trimmed, inner whitespace collapsed.
func Normalize(s string) string {
	return commandWS.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Synthesize counts normalized command frequencies and keeps those with
// support >= max(1, floor(n*minSupport)). Results are ordered by count
// descending; ties keep first-seen order so the output is deterministic.
func Synthesize(raw []string, minSupport float64) Synthesized {
	out := Synthesized{TopCommands: []TopCommand{}, RawCommands: append([]string{}, raw...)}
	if len(raw) == 0 {
		return out
	}

	counts := make(map[string]int, len(raw))
	first := make(map[string]string, len(raw))
	var order []string
	for _, cmd := range raw {
		key := Normalize(cmd)
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			first[key] = cmd
			order = append(order, key)
		}
		counts[key]++
	}

	threshold := int(float64(len(raw)) * minSupport)
	if threshold < 1 {
		threshold = 1
	}

	firstSeen := make(map[string]int, len(order))
	for i, key := range order {
		firstSeen[key] = i
	}
	var top []TopCommand
	for _, key := range order {
		if counts[key] >= threshold {
			top = append(top, TopCommand{Text: first[key], Count: counts[key]})
		}
	}
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return firstSeen[Normalize(top[i].Text)] < firstSeen[Normalize(top[j].Text)]
	})

	out.TopCommands = top
	out.Summary = summarize(top, len(raw))
	return out
}

// summarize renders the top-three consensus line plus participation context.
func summarize(top []TopCommand, total int) string {
	var s string
	switch {
	case len(top) == 0:
		s = "No clear consensus in recent commands."
	case len(top) == 1:
		s = fmt.Sprintf("The crowd unanimously requested: %q", top[0].Text)
	case len(top) == 2:
		s = fmt.Sprintf("Top requests: %q (%dx) and %q (%dx)", top[0].Text, top[0].Count, top[1].Text, top[1].Count)
	default:
		s = fmt.Sprintf("Top requests: %q (%dx), %q (%dx), %q (%dx)",
			top[0].Text, top[0].Count, top[1].Text, top[1].Count, top[2].Text, top[2].Count)
	}
	s += fmt.Sprintf("\n\nTotal commands in this interval: %d. Honor the highest-frequency commands first; ignore obviously conflicting or low-frequency ones.", total)
	return s
}
