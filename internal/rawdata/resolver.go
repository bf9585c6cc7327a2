package rawdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Raw data types, one directory each under raw/<cruise>/.
const (
	TypeElog     = "elog"
	TypeCTD      = "ctd"
	TypeUnderway = "underway"
	TypeMetadata = "metadata"
)

const (
	rawDir = "raw"
	allDir = "all"
)

// Resolver locates raw input files under a data root laid out as
// <root>/raw/<cruise>/<type>/.
type Resolver struct {
	dataRoot string
}

// NewResolver creates a Resolver rooted at dataRoot.
func NewResolver(dataRoot string) *Resolver {
	return &Resolver{dataRoot: dataRoot}
}

// DataRoot returns the configured root directory.
func (r *Resolver) DataRoot() string {
	return r.dataRoot
}

// RawDirectory returns raw/<cruise>/<dataType>, or an error wrapping
// domain.ErrDataNotFound when it does not exist.
func (r *Resolver) RawDirectory(cruise, dataType string) (string, error) {
	if err := domain.ValidateCruise(cruise); err != nil {
		return "", err
	}
	dir := filepath.Join(r.dataRoot, rawDir, strings.ToLower(cruise), dataType)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s directory for %s: %w", dataType, cruise, domain.ErrDataNotFound)
	}
	return dir, nil
}

// FindFiles returns the sorted paths in the cruise's dataType directory whose
// base name matches any of the case-insensitive glob patterns.
func (r *Resolver) FindFiles(cruise, dataType string, patterns ...string) ([]string, error) {
	dir, err := r.RawDirectory(cruise, dataType)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchAny(e.Name(), patterns) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// FindFile returns the single file matching patterns. Zero or several
// matches wrap domain.ErrDataNotFound.
func (r *Resolver) FindFile(cruise, dataType string, patterns ...string) (string, error) {
	paths, err := r.FindFiles(cruise, dataType, patterns...)
	if err != nil {
		return "", err
	}
	switch len(paths) {
	case 0:
		return "", fmt.Errorf("%s file %v for %s: %w", dataType, patterns, cruise, domain.ErrDataNotFound)
	case 1:
		return paths[0], nil
	default:
		return "", fmt.Errorf("%s file %v for %s is ambiguous (%d matches): %w",
			dataType, patterns, cruise, len(paths), domain.ErrDataNotFound)
	}
}

// Cruises lists the cruise directories under raw/, lower-cased and sorted.
func (r *Resolver) Cruises() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.dataRoot, rawDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("raw directory under %s: %w", r.dataRoot, domain.ErrDataNotFound)
		}
		return nil, fmt.Errorf("list cruises: %w", err)
	}
	var cruises []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == allDir || domain.ValidateCruise(e.Name()) != nil {
			continue
		}
		cruises = append(cruises, strings.ToLower(e.Name()))
	}
	sort.Strings(cruises)
	return cruises, nil
}

// CheckReadiness reports whether the raw directory is reachable.
func (r *Resolver) CheckReadiness(_ context.Context) error {
	dir := filepath.Join(r.dataRoot, rawDir)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("raw data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("raw data directory %s is not a directory", dir)
	}
	return nil
}

func matchAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), lower); ok {
			return true
		}
	}
	return false
}
