// Package prompt holds the fixed texts the advisor sends to its collaborators
// and to users. Each text can be replaced by a file in a prompt directory.
package prompt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	NameSystem    = "advisor.system"
	NameDirective = "voice.directive"
	NameApology   = "apology"
)

const DefaultSystem = "You are a Nepali agriculture expert. " +
	"Give clear, simple answers. " +
	"Use plain text only. " +
	"Do NOT use bullets, *, -, markdown or formatting. " +
	"Explain in a helpful way suitable for farmers. " +
	"Give answers in Nepali language like you are talking to a farmer and as a native Nepali speaker."

const DefaultDirective = "Speak in Nepali with a natural Nepali accent. " +
	"Use a calm, clear and steady tone at a slow, even pace suitable for farmers. " +
	"Do not add emotional inflection, excitement or dramatic emphasis. Read the following text exactly:"

const DefaultApology = "माफ गर्नुहोस्, अहिले प्राविधिक समस्याका कारण उत्तर दिन सकिन। कृपया फेरि प्रयास गर्नुहोस्।"

var defaults = map[string]string{
	NameSystem:    DefaultSystem,
	NameDirective: DefaultDirective,
	NameApology:   DefaultApology,
}

// Set is the resolved collection of prompt texts.
type Set struct {
	System    string
	Directive string
	Apology   string
}

func Defaults() Set {
	return Set{System: DefaultSystem, Directive: DefaultDirective, Apology: DefaultApology}
}

// Load returns <dir>/<name>.txt when it exists and is non-empty, otherwise the
// built-in default for name.
func Load(dir, name string) (string, error) {
	def, ok := defaults[name]
	if !ok {
		return "", errors.Errorf("unknown prompt %q", name)
	}
	if strings.TrimSpace(dir) == "" {
		return def, nil
	}
	p := filepath.Join(dir, name+".txt")
	b, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return def, nil
	case err != nil:
		return "", errors.Wrapf(err, "read prompt %s", p)
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		log.Info().Str("prompt", name).Str("path", p).Msg("prompt override loaded")
		return s, nil
	}
	return def, nil
}

// LoadSet resolves all prompts from dir.
func LoadSet(dir string) (Set, error) {
	var s Set
	var err error
	if s.System, err = Load(dir, NameSystem); err != nil {
		return Set{}, err
	}
	if s.Directive, err = Load(dir, NameDirective); err != nil {
		return Set{}, err
	}
	if s.Apology, err = Load(dir, NameApology); err != nil {
		return Set{}, err
	}
	return s, nil
}
