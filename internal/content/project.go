// Package content loads project write-ups from markdown files with YAML
// front matter.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoFrontMatter = errors.New("content: missing front matter")
	ErrMissingTitle  = errors.New("content: missing title")
	ErrNotFound      = errors.New("content: project not found")
)

const dateLayout = "2006-01-02"

type Project struct {
	Slug        string
	Title       string
	Description string
	// Date is nil for projects that are announced but not released.
	Date       *time.Time
	Published  bool
	URL        string
	Repository string
	Body       template.HTML
}

type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
	Published   bool   `yaml:"published"`
	URL         string `yaml:"url"`
	Repository  string `yaml:"repository"`
}

var delimiter = []byte("---")

// Load parses every *.md file at the root of fsys. The slug is the file name
// without its extension. Projects come back sorted by slug.
func Load(fsys fs.FS, r *Renderer) ([]Project, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("content: read dir: %w", err)
	}

	var projects []Project
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", e.Name(), err)
		}
		p, err := Parse(strings.TrimSuffix(e.Name(), ".md"), data, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Slug < projects[j].Slug })
	return projects, nil
}

// Parse decodes one markdown document.
func Parse(slug string, data []byte, r *Renderer) (Project, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return Project{}, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return Project{}, fmt.Errorf("content: decode front matter: %w", err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return Project{}, ErrMissingTitle
	}

	p := Project{
		Slug:        slug,
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		Published:   fm.Published,
		URL:         fm.URL,
		Repository:  fm.Repository,
	}
	if fm.Date != "" {
		d, err := time.Parse(dateLayout, fm.Date)
		if err != nil {
			return Project{}, fmt.Errorf("content: date %q: %w", fm.Date, err)
		}
		p.Date = &d
	}

	if r != nil {
		html, err := r.Render(body)
		if err != nil {
			return Project{}, err
		}
		p.Body = html
	}
	return p, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(data, delimiter) {
		return nil, nil, ErrNoFrontMatter
	}
	rest := data[len(delimiter):]
	end := bytes.Index(rest, append([]byte("\n"), delimiter...))
	if end < 0 {
		return nil, nil, ErrNoFrontMatter
	}
	meta = rest[:end]
	body = rest[end+1+len(delimiter):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, body, nil
}

// Store is an immutable in-memory index of projects.
type Store struct {
	projects []Project
	bySlug   map[string]int
}

func NewStore(projects []Project) *Store {
	s := &Store{
		projects: append([]Project(nil), projects...),
		bySlug:   make(map[string]int, len(projects)),
	}
	for i, p := range s.projects {
		s.bySlug[p.Slug] = i
	}
	return s
}

// All returns every project, published or not.
func (s *Store) All() []Project {
	return append([]Project(nil), s.projects...)
}

func (s *Store) Get(slug string) (Project, error) {
	i, ok := s.bySlug[slug]
	if !ok {
		return Project{}, ErrNotFound
	}
	return s.projects[i], nil
}

func (s *Store) Slugs() []string {
	out := make([]string, len(s.projects))
	for i, p := range s.projects {
		out[i] = p.Slug
	}
	return out
}
