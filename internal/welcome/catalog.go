package welcome

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed catalog.toml
var defaultCatalog []byte

// Translation is one greeting shown by the splash.
type Translation struct {
	Text         string `json:"text"`
	LanguageName string `json:"languageName"`
	LanguageCode string `json:"languageCode"`
}

type catalogFile struct {
	Greetings []struct {
		Text string `toml:"text"`
		Name string `toml:"name"`
		Code string `toml:"code"`
	} `toml:"greeting"`
}

var builtin []Translation

func init() {
	var err error
	builtin, err = LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic("welcome: embedded catalog: " + err.Error())
	}
}

// DefaultCatalog returns a copy of the embedded greeting list.
func DefaultCatalog() []Translation {
	out := make([]Translation, len(builtin))
	copy(out, builtin)
	return out
}

// LoadCatalog parses a TOML greeting list. Every code must be a valid BCP 47
// tag; a missing name is filled with the English display name of the tag.
func LoadCatalog(r io.Reader) ([]Translation, error) {
	var file catalogFile
	if err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("welcome: decode catalog: %w", err)
	}
	if len(file.Greetings) == 0 {
		return nil, ErrNoTranslations
	}

	out := make([]Translation, 0, len(file.Greetings))
	for i, g := range file.Greetings {
		text := strings.TrimSpace(g.Text)
		if text == "" {
			return nil, fmt.Errorf("welcome: greeting %d has no text", i)
		}
		tag, err := language.Parse(g.Code)
		if err != nil {
			return nil, fmt.Errorf("%w %q (greeting %d): %v", ErrInvalidLanguage, g.Code, i, err)
		}
		name := strings.TrimSpace(g.Name)
		if name == "" {
			name = display.English.Languages().Name(tag)
		}
		out = append(out, Translation{
			Text:         text,
			LanguageName: name,
			LanguageCode: tag.String(),
		})
	}
	return out, nil
}

// LoadCatalogFile reads a catalog from path. An empty path yields the
// embedded catalog.
func LoadCatalogFile(path string) ([]Translation, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("welcome: open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
