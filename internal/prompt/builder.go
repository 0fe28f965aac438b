package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Section names recognized by the builder, in render order.
const (
	SectionRole         = "role"
	SectionTask         = "task"
	SectionConstraints  = "constraints"
	SectionStyle        = "style"
	SectionOutputFormat = "output_format"
)

var sectionOrder = []string{SectionRole, SectionTask, SectionConstraints, SectionStyle, SectionOutputFormat}

var sectionLabels = map[string]string{
	SectionTask:         "Task:",
	SectionConstraints:  "Constraints:",
	SectionStyle:        "Style:",
	SectionOutputFormat: "Output format:",
}

// ErrUnknownSection signals an update against a section name the builder does
// not recognize.
var ErrUnknownSection = fmt.Errorf("unknown prompt section")

// DefaultLocale is the locale that gets no phrasing note in the prompt.
const DefaultLocale = "en-US"

func defaultSections() map[string]string {
	return map[string]string{
		SectionRole:        "You are a friendly, precise cultural assistant for quick, factual guidance",
		SectionTask:        "Answer cultural questions clearly and briefly. Prioritize accuracy, define terms, and add one actionable tip when helpful",
		SectionConstraints: "Do not fabricate references. If unsure, say so briefly. Avoid policy, medical, or legal advice. Keep answers under 200 words when possible",
		SectionStyle:       "Tone: warm, concise, non-patronizing. Use simple sentences and neutral vocabulary.",
		SectionOutputFormat: "Answer using this structure:\n" +
			"1) Direct answer (2-4 sentences)\n" +
			"2) Optional bullets (max 3)\n" +
			"3) One follow-up question on user intent",
	}
}

// Builder renders the system prompt from five named sections. Built-in
// defaults can be overridden by one plain-text file per section in dir, and
// rewritten at runtime through UpdateSection. Safe for concurrent use.
type Builder struct {
	mu       sync.RWMutex
	dir      string
	sections map[string]string
}

// NewBuilder loads section overrides from dir, which is created if missing.
func NewBuilder(dir string) (*Builder, error) {
	if dir == "" {
		dir = "prompts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create prompts dir: %w", err)
	}

	b := &Builder{dir: dir, sections: defaultSections()}
	for _, key := range sectionOrder {
		data, err := os.ReadFile(b.sectionPath(key))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read prompt override %s: %w", key, err)
		}
		b.sections[key] = strings.TrimSpace(string(data))
	}
	return b, nil
}

func (b *Builder) sectionPath(key string) string {
	return filepath.Join(b.dir, key+".txt")
}

// Section returns the current content of one section.
func (b *Builder) Section(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	content, ok := b.sections[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	return content, nil
}

// UpdateSection replaces one section for the rest of the process lifetime and
// persists the override file.
func (b *Builder) UpdateSection(key, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sections[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	if err := os.WriteFile(b.sectionPath(key), []byte(content), 0o644); err != nil {
		return fmt.Errorf("persist prompt override %s: %w", key, err)
	}
	b.sections[key] = content
	return nil
}

// BuildSystemPrompt renders the five sections in fixed order, followed by a
// conversation-memory block when memory is non-empty and a locale note when
// the locale differs from the default.
func (b *Builder) BuildSystemPrompt(memory []string, locale string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder
	for i, key := range sectionOrder {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if label, ok := sectionLabels[key]; ok {
			sb.WriteString(label)
			sb.WriteString("\n")
		}
		sb.WriteString(b.sections[key])
	}

	if len(memory) > 0 {
		sb.WriteString("\n\nConversation memory:\n-")
		sb.WriteString(strings.Join(memory, "\n-"))
	}
	if locale != "" && locale != DefaultLocale {
		sb.WriteString("\n\nNote: Respond in a culturally appropriate way for ")
		sb.WriteString(locale)
		sb.WriteString(".")
	}
	return sb.String()
}
