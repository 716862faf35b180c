package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"
)

// Set holds the schemas declared for one method.
//
// ParamsAbsent and ResultAbsent mark a method that is declared to take no
// params or to return no result; they are mutually exclusive with Params and
// Result respectively.
type Set struct {
	Params       *Schema
	ParamsAbsent bool
	Result       *Schema
	ResultAbsent bool
}

// HasParams reports whether the set says anything about params.
func (s *Set) HasParams() bool {
	return s != nil && (s.Params != nil || s.ParamsAbsent)
}

// Source supplies the schemas of a method by name. A nil Set with a nil
// error means the method has no schemas.
type Source interface {
	Load(method string) (*Set, error)
}

// Map is an in-memory Source.
type Map map[string]*Set

func (m Map) Load(method string) (*Set, error) {
	return m[method], nil
}

// extensions are tried in order for each schema file.
var extensions = []string{".json", ".yaml", ".yml"}

// Dir is a Source reading schema documents from a file system. The params
// schema of method m lives in "m.params.json" (or .yaml/.yml) and its result
// schema in "m.result.json". A document of the form {"absent": true} marks the
// params or result as absent.
type Dir struct {
	fsys fs.FS
}

// NewDir creates a Source over fsys.
func NewDir(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// OpenDir creates a Source over the directory at path.
func OpenDir(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema dir: %s is not a directory", path)
	}
	return NewDir(os.DirFS(path)), nil
}

func (d *Dir) Load(method string) (*Set, error) {
	var errs *multierror.Error
	var set Set
	found := false

	params, absent, ok, err := d.document(method + ".params")
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if ok {
		found = true
		set.Params, set.ParamsAbsent = params, absent
	}

	result, absent, ok, err := d.document(method + ".result")
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if ok {
		found = true
		set.Result, set.ResultAbsent = result, absent
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &set, nil
}

// document reads the first existing file for base. ok is false when no such
// file exists.
func (d *Dir) document(base string) (s *Schema, absent bool, ok bool, err error) {
	for _, ext := range extensions {
		name := base + ext
		data, err := fs.ReadFile(d.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, false, fmt.Errorf("%s: %w", name, err)
		}
		v, err := decode(data)
		if err != nil {
			return nil, false, false, fmt.Errorf("%s: %w", name, err)
		}
		if isAbsentMarker(v) {
			return nil, true, true, nil
		}
		s, err := fromValue(v)
		if err != nil {
			return nil, false, false, fmt.Errorf("%s: %w", name, err)
		}
		return s, false, true, nil
	}
	return nil, false, false, nil
}

func isAbsentMarker(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	absent, _ := m["absent"].(bool)
	return absent
}
