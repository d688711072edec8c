package content

import (
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the owner's about text, work history and education.
type Profile struct {
	Name       string  `yaml:"name"`
	Tagline    string  `yaml:"tagline"`
	About      string  `yaml:"about"`
	Experience []Entry `yaml:"experience"`
	Education  []Entry `yaml:"education"`
}

// Entry is one job or degree.
type Entry struct {
	Title        string   `yaml:"title"`
	Organization string   `yaml:"organization"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Logo         string   `yaml:"logo"`
	Highlights   []string `yaml:"highlights"`
}

// LoadProfile reads name from fsys.
func LoadProfile(fsys fs.FS, name string) (*Profile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("content: read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("content: decode profile: %w", err)
	}
	p.About = strings.TrimSpace(p.About)
	return &p, nil
}
