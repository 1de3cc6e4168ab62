// Package fixture loads JSON fixtures describing default payloads.
//
// A fixture is a file named <name>.json. Before decoding, the file is
// rendered with text/template so fixtures may call helpers such as
// {{ fakeEmail }}; the helpers are seeded from the fixture name and every
// load of the same fixture yields the same document.
//
// The default fixtures are embedded in the package and exposed as Webhooks
// and Resources. A Loader searches a project directory before them.
package fixture

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/jaswdr/faker/v2"
)

// Ext is the extension of fixture files.
const Ext = ".json"

// ErrNotFound is returned when no source holds the requested fixture.
var ErrNotFound = errors.New("fixture not found")

//go:embed webhooks/*.json resources/*.json
var bundled embed.FS

var (
	// Webhooks holds the default webhook event fixtures.
	Webhooks = mustSub(bundled, "webhooks")

	// Resources holds the default payloads of API resources.
	Resources = mustSub(bundled, "resources")
)

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Load returns the fixture called name from the first source that holds it.
// Sources are searched in order.
func Load(name string, sources ...fs.FS) (map[string]any, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		blob, err := fs.ReadFile(src, name+Ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read fixture %q: %w", name, err)
		}
		return decode(name, blob)
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Exists reports whether src holds a fixture called name.
func Exists(src fs.FS, name string) bool {
	if src == nil {
		return false
	}
	_, err := fs.Stat(src, name+Ext)
	return err == nil
}

// Names returns the sorted base names of the fixtures found at the root of
// fsys.
func Names(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != Ext {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(names)
	return names, nil
}

func decode(name string, blob []byte) (map[string]any, error) {
	tmpl, err := template.New(name).Funcs(funcs(name)).Parse(string(blob))
	if err != nil {
		return nil, fmt.Errorf("parse fixture %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return nil, fmt.Errorf("render fixture %q: %w", name, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("decode fixture %q: %w", name, err)
	}
	return doc, nil
}

func funcs(name string) template.FuncMap {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	f := faker.NewWithSeed(rand.NewPCG(h.Sum64(), 0))

	return template.FuncMap{
		"fakeName":    func() string { return f.Person().Name() },
		"fakeEmail":   func() string { return f.Internet().Email() },
		"fakeCompany": func() string { return f.Company().Name() },
		"fakeWord":    func() string { return f.Lorem().Word() },
		"fakeCity":    func() string { return f.Address().City() },
		"fakeID":      func() string { return strings.ToUpper(f.Lorem().Word()) + fmt.Sprint(f.IntBetween(1000, 9999)) },
	}
}

// Loader loads fixtures from a project directory, falling back to a
// default source. The directory may be changed at any time; the change
// applies to the next load.
type Loader struct {
	dir      string
	defaults fs.FS
}

func NewLoader(defaults fs.FS, dir string) *Loader {
	return &Loader{dir: dir, defaults: defaults}
}

// Dir returns the project fixture directory.
func (l *Loader) Dir() string {
	return l.dir
}

// SetDir changes the project fixture directory.
func (l *Loader) SetDir(dir string) {
	l.dir = dir
}

// Load returns the fixture called name from the project directory or, when
// absent there, from the defaults.
func (l *Loader) Load(name string) (map[string]any, error) {
	return Load(name, l.project(), l.defaults)
}

// InProject reports whether the project directory provides name.
func (l *Loader) InProject(name string) bool {
	return Exists(l.project(), name)
}

func (l *Loader) project() fs.FS {
	if l.dir == "" {
		return nil
	}
	return os.DirFS(l.dir)
}
