package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Message keys used by the coordinator.
const (
	MsgSleepersNeeded   = "sleepers_needed"
	MsgNightSkipped     = "night_skipped"
	MsgNightSkipBlocked = "night_skip_blocked"
	msgPrefix           = "prefix"
)

const colorCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

// Messages is an immutable set of message templates keyed by name.
type Messages struct {
	templates map[string]string
}

// DefaultMessages returns the templates used when no messages file exists.
func DefaultMessages() Messages {
	return NewMessages(map[string]string{
		MsgSleepersNeeded:   "&eSleeping: &f{progress}&7/&f{time}",
		MsgNightSkipped:     "&aThe night has been skipped!",
		MsgNightSkipBlocked: "&cThe night was already skipped. You can sleep again next night.",
	})
}

// NewMessages copies the given templates.
func NewMessages(templates map[string]string) Messages {
	m := Messages{templates: make(map[string]string, len(templates))}
	for k, v := range templates {
		m.templates[k] = v
	}
	return m
}

// LoadMessages reads a flat YAML map of message templates.
func LoadMessages(path string) (Messages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Messages{}, fmt.Errorf("failed to read messages file: %w", err)
	}
	return ParseMessages(data)
}

// ParseMessages parses a flat YAML map of message templates.
func ParseMessages(data []byte) (Messages, error) {
	var templates map[string]string
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return Messages{}, fmt.Errorf("failed to parse messages: %w", err)
	}
	return NewMessages(templates), nil
}

// Template returns the raw template for key.
func (m Messages) Template(key string) (string, bool) {
	v, ok := m.templates[key]
	return v, ok
}

// Render substitutes {placeholder} values and translates colour codes.
// It returns false when the key is missing or its template is empty.
func (m Messages) Render(key string, vars map[string]string) (string, bool) {
	tmpl, ok := m.templates[key]
	if !ok || tmpl == "" {
		return "", false
	}
	for name, value := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+name+"}", value)
	}
	return TranslateColors(tmpl), true
}

// RenderPrefixed is Render with the configured chat prefix prepended.
func (m Messages) RenderPrefixed(key string, vars map[string]string) (string, bool) {
	msg, ok := m.Render(key, vars)
	if !ok {
		return "", false
	}
	if prefix, ok := m.Render(msgPrefix, nil); ok {
		msg = prefix + msg
	}
	return msg, true
}

// TranslateColors replaces '&' followed by a formatting code character with
// the section sign form understood by game clients.
func TranslateColors(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	b := []rune(s)
	for i := 0; i < len(b)-1; i++ {
		if b[i] == '&' && strings.ContainsRune(colorCodes, b[i+1]) {
			b[i] = '§'
			b[i+1] = toLower(b[i+1])
		}
	}
	return string(b)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
