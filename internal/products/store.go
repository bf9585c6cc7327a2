package products

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Sidecar describes a written product. It is stored next to the product as
// <cruise>_<product>.meta.json.
type Sidecar struct {
	Filename     string    `json:"filename"`
	JSONFilename string    `json:"json_filename"`
	Cruise       string    `json:"cruise"`
	Product      string    `json:"product"`
	Rows         int       `json:"rows"`
	Columns      []string  `json:"columns"`
	GeneratedAt  time.Time `json:"generated_at"`
	RunID        string    `json:"run_id"`
}

// NewRunID returns a time-ordered identifier for one generation run.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Store writes products under <dir>/<cruise>/.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the products root.
func (s *Store) Dir() string { return s.dir }

// BaseName returns "<cruise>_<product>".
func BaseName(cruise, product string) string {
	return strings.ToLower(cruise) + "_" + product
}

// Write stores the table as CSV and JSON plus a sidecar. Files are written
// to a temporary name and renamed into place. An empty runID gets a new one.
func (s *Store) Write(ctx context.Context, runID, cruise, product string, t Table) (Sidecar, error) {
	if err := ctx.Err(); err != nil {
		return Sidecar{}, err
	}
	if err := domain.ValidateCruise(cruise); err != nil {
		return Sidecar{}, err
	}
	if runID == "" {
		runID = NewRunID()
	}
	cruise = strings.ToLower(cruise)
	dir := filepath.Join(s.dir, cruise)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Sidecar{}, fmt.Errorf("creating product directory: %w", err)
	}

	base := BaseName(cruise, product)
	meta := Sidecar{
		Filename:     base + ".csv",
		JSONFilename: base + ".json",
		Cruise:       cruise,
		Product:      product,
		Rows:         t.Len(),
		Columns:      t.Columns,
		GeneratedAt:  clock.Now().UTC(),
		RunID:        runID,
	}

	var csvBuf, jsonBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, t); err != nil {
		return Sidecar{}, fmt.Errorf("encoding %s csv: %w", base, err)
	}
	if err := WriteJSON(&jsonBuf, t); err != nil {
		return Sidecar{}, fmt.Errorf("encoding %s json: %w", base, err)
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Sidecar{}, fmt.Errorf("encoding %s sidecar: %w", base, err)
	}

	for name, data := range map[string][]byte{
		meta.Filename:       csvBuf.Bytes(),
		meta.JSONFilename:   jsonBuf.Bytes(),
		base + ".meta.json": append(metaBytes, '\n'),
	} {
		if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
			return Sidecar{}, err
		}
	}
	return meta, nil
}

// Open opens a stored product file; ext is "csv", "json" or "meta.json".
// A missing product or an invalid cruise name wraps domain.ErrDataNotFound.
func (s *Store) Open(cruise, product, ext string) (*os.File, error) {
	if err := domain.ValidateCruise(cruise); err != nil {
		return nil, err
	}
	switch ext {
	case "csv", "json", "meta.json":
	default:
		return nil, fmt.Errorf("product format %q: %w", ext, domain.ErrDataNotFound)
	}
	path := filepath.Join(s.dir, strings.ToLower(cruise), BaseName(cruise, product)+"."+ext)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("product %s for %s: %w", product, cruise, domain.ErrDataNotFound)
		}
		return nil, fmt.Errorf("opening product: %w", err)
	}
	return f, nil
}

// Sidecar reads the stored sidecar for a product.
func (s *Store) Sidecar(cruise, product string) (Sidecar, error) {
	f, err := s.Open(cruise, product, "meta.json")
	if err != nil {
		return Sidecar{}, err
	}
	defer f.Close()
	var meta Sidecar
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return Sidecar{}, fmt.Errorf("decoding sidecar: %w", err)
	}
	return meta, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func nan() float64 { return math.NaN() }
