package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(t.TempDir())
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func TestBuildSystemPromptSectionOrder(t *testing.T) {
	b := newTestBuilder(t)
	got := b.BuildSystemPrompt(nil, DefaultLocale)

	labels := []string{"Task:", "Constraints:", "Style:", "Output format:"}
	pos := -1
	for _, l := range labels {
		i := strings.Index(got, l)
		if i < 0 {
			t.Fatalf("missing section label %q", l)
		}
		if i < pos {
			t.Fatalf("section %q out of order", l)
		}
		pos = i
	}
	if !strings.HasPrefix(got, "You are a friendly") {
		t.Fatalf("role section should lead the prompt, got %q…", got[:40])
	}
}

func TestBuildSystemPromptNoMemoryNoLocaleNote(t *testing.T) {
	b := newTestBuilder(t)
	got := b.BuildSystemPrompt(nil, "en-US")
	if strings.Contains(got, "Conversation memory") {
		t.Fatalf("empty memory should add no memory block")
	}
	if strings.Contains(got, "culturally appropriate way for") {
		t.Fatalf("default locale should add no locale note")
	}
}

func TestBuildSystemPromptMemoryAndLocale(t *testing.T) {
	b := newTestBuilder(t)
	got := b.BuildSystemPrompt([]string{"x"}, "fr-FR")
	if !strings.Contains(got, "Conversation memory:\n-x") {
		t.Fatalf("memory block missing: %q", got)
	}
	if !strings.Contains(got, "culturally appropriate way for fr-FR.") {
		t.Fatalf("locale note missing: %q", got)
	}
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	b := newTestBuilder(t)
	mem := []string{"first", "second"}
	if b.BuildSystemPrompt(mem, "de-DE") != b.BuildSystemPrompt(mem, "de-DE") {
		t.Fatalf("same inputs should render the same prompt")
	}
}

func TestUpdateSectionPersists(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBuilder(dir)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	if err := b.UpdateSection(SectionStyle, "Terse and formal."); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}
	if !strings.Contains(b.BuildSystemPrompt(nil, DefaultLocale), "Terse and formal.") {
		t.Fatalf("updated section not rendered")
	}

	data, err := os.ReadFile(filepath.Join(dir, "style.txt"))
	if err != nil {
		t.Fatalf("override file not written: %v", err)
	}
	if string(data) != "Terse and formal." {
		t.Fatalf("override file content = %q", data)
	}

	// A fresh builder picks the override up from disk.
	b2, err := NewBuilder(dir)
	if err != nil {
		t.Fatalf("NewBuilder() reload error = %v", err)
	}
	if got, _ := b2.Section(SectionStyle); got != "Terse and formal." {
		t.Fatalf("reloaded section = %q", got)
	}
}

func TestUpdateSectionUnknownKey(t *testing.T) {
	b := newTestBuilder(t)
	err := b.UpdateSection("persona", "nope")
	if !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("error = %v, want ErrUnknownSection", err)
	}
}
