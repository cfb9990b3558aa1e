// Package output writes generated resources to release files.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/gofhir/labcodeset/resource"
)

// ErrUnknownRole is returned for an entry whose role has no file name.
var ErrUnknownRole = errors.New("no file name for resource role")

// fileNames maps roles to file name patterns. %s is the resource version.
var fileNames = map[resource.Role]string{
	resource.RoleLoincSupplement:    "LOINCCodeSystemSupplement-%s.json",
	resource.RoleLoincValueSet:      "LOINCValueset-%s.json",
	resource.RoleUcumCodeSystem:     "UcumCodeSystemFragment-%s.json",
	resource.RoleUcumValueSet:       "UcumValueSet-%s.json",
	resource.RoleUcumConceptMap:     "UcumConceptMap-%s.json",
	resource.RoleMaterialValueSet:   "MaterialValueset-%s.json",
	resource.RoleMaterialConceptMap: "MaterialConceptMap-%s.json",
	resource.RoleOutcomeConceptMap:  "OutcomeConceptMap-%s.json",
}

const (
	ordinalFileName = "OutcomeValueSet_%s-%s.json"
	bundleFileName  = "Labcodeset-bundle-%s.json"
)

// FileName returns the release file name of e.
func FileName(e resource.Entry) (string, error) {
	r := e.Resource
	if e.Role == resource.RoleOrdinalValueSet {
		return fmt.Sprintf(ordinalFileName, r.ResourceID(), r.ResourceVersion()), nil
	}
	pattern, ok := fileNames[e.Role]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownRole, e.Role)
	}
	return fmt.Sprintf(pattern, r.ResourceVersion()), nil
}

// BundleFileName returns the release file name of the bundle for a
// publication version.
func BundleFileName(version string) string {
	return fmt.Sprintf(bundleFileName, version)
}

// Writer writes resources as indented FHIR JSON into one directory.
type Writer struct {
	fs  afero.Fs
	dir string
	log zerolog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithFs sets the file system written to. The default is the OS file
// system.
func WithFs(fs afero.Fs) Option {
	return func(w *Writer) {
		w.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Writer) {
		w.log = log
	}
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		fs:  afero.NewOsFs(),
		dir: dir,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write writes one resource and returns the path written. An existing file
// is replaced.
func (w *Writer) Write(e resource.Entry) (string, error) {
	name, err := FileName(e)
	if err != nil {
		return "", err
	}
	return w.write(name, e.Resource)
}

// WriteBundle writes the bundle of publication version.
func (w *Writer) WriteBundle(b *resource.Bundle, version string) (string, error) {
	return w.write(BundleFileName(version), b)
}

// WriteAll writes every entry in order followed by the bundle, and returns
// the paths written. It stops at the first failure.
func (w *Writer) WriteAll(entries []resource.Entry, b *resource.Bundle, version string) ([]string, error) {
	paths := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		p, err := w.Write(e)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if b != nil {
		p, err := w.WriteBundle(b, version)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (w *Writer) write(name string, v any) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	if err := afero.WriteFile(w.fs, path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	w.log.Debug().Str("file", path).Int("bytes", len(data)).Msg("wrote release file")
	return path, nil
}
