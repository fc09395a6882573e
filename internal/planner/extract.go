// Package planner runs the read-only planning pass and merges the plans the
// agent proposes back into the backlog.
package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNoPlan is returned when no strategy finds a usable plan in the output.
var ErrNoPlan = errors.New("could not parse plan JSON from output")

// Entry is one plan proposed for a backlog task.
type Entry struct {
	ID   int    `json:"id"`
	Plan string `json:"plan"`
}

var (
	fencePattern   = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	arrayPattern   = regexp.MustCompile(`\[[\s\S]*\]`)
	planTagPattern = regexp.MustCompile(`(?i)<plan_json>([\s\S]*?)</plan_json>`)
	trailingDigits = regexp.MustCompile(`(\d+)$`)
)

// Extract finds the plan JSON in the agent's output. It tries a fenced code
// block, then the widest bare array, then a <plan_json> block, and returns
// the first non-empty result.
func Extract(output string) ([]Entry, error) {
	for _, m := range fencePattern.FindAllStringSubmatch(output, -1) {
		if entries, err := decode(m[1]); err == nil {
			return entries, nil
		}
	}

	if m := arrayPattern.FindString(output); m != "" {
		if entries, err := decode(m); err == nil {
			return entries, nil
		}
	}

	// The answer is normally the last tagged block.
	tagged := planTagPattern.FindAllStringSubmatch(output, -1)
	for i := len(tagged) - 1; i >= 0; i-- {
		if entries, err := decode(tagged[i][1]); err == nil {
			return entries, nil
		}
	}

	return nil, ErrNoPlan
}

// decode accepts an array of {id, plan} objects or an object keyed by id.
func decode(raw string) ([]Entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty block")
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	var entries []Entry
	switch v := doc.(type) {
	case []interface{}:
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			id, ok := parseID(obj["id"])
			if !ok {
				continue
			}
			plan, ok := obj["plan"]
			if !ok {
				continue
			}
			entries = append(entries, Entry{ID: id, Plan: planText(plan)})
		}
	case map[string]interface{}:
		for key, plan := range v {
			id, ok := parseID(key)
			if !ok {
				continue
			}
			entries = append(entries, Entry{ID: id, Plan: planText(plan)})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	default:
		return nil, fmt.Errorf("unexpected JSON %T", doc)
	}

	if len(entries) == 0 {
		return nil, errors.New("no plan entries")
	}
	return entries, nil
}

// parseID reads a task id from a JSON number or a key such as "2" or "prd_id_02".
func parseID(v interface{}) (int, bool) {
	switch id := v.(type) {
	case float64:
		if id < 0 || id != math.Trunc(id) {
			return 0, false
		}
		return int(id), true
	case string:
		m := trailingDigits.FindString(strings.TrimSpace(id))
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// planText renders a plan value as text. Lists become one line per step.
func planText(v interface{}) string {
	switch p := v.(type) {
	case string:
		return p
	case []interface{}:
		lines := make([]string, 0, len(p))
		for _, step := range p {
			lines = append(lines, planText(step))
		}
		return strings.Join(lines, "\n")
	case nil:
		return ""
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Sprint(p)
		}
		return string(data)
	}
}
