package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mahimeta/mahimeta-go-sdk/internal/domain"
	"gopkg.in/yaml.v3"
)

// Package manifest reads SDK settings declared by the host application.

// PublisherIDKey is the meta-data entry holding the publisher ID.
const PublisherIDKey = "com.mahimeta.sdk.PUBLISHER_ID"

// ErrConfigurationMissing is returned when the host did not declare the publisher ID.
var ErrConfigurationMissing = errors.New("sdk configuration missing")

// Reader resolves the publisher ID for a host application.
type Reader interface {
	PublisherID(appCtx domain.AppContext) (string, error)
}

// Manifest is the host application's declared meta-data.
type Manifest struct {
	PackageName string            `json:"package" yaml:"package"`
	MetaData    map[string]string `json:"meta_data" yaml:"meta_data"`
}

// New builds an in-memory manifest declaring publisherID. A blank publisherID
// is kept out of the meta-data so lookups fail with ErrConfigurationMissing.
func New(packageName, publisherID string) *Manifest {
	m := &Manifest{PackageName: strings.TrimSpace(packageName), MetaData: map[string]string{}}
	if id := strings.TrimSpace(publisherID); id != "" {
		m.MetaData[PublisherIDKey] = id
	}
	return m
}

// PublisherID returns the declared publisher ID for appCtx.
func (m *Manifest) PublisherID(appCtx domain.AppContext) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: no manifest loaded", ErrConfigurationMissing)
	}
	pkg := strings.TrimSpace(appCtx.PackageName)
	if m.PackageName != "" && pkg != "" && !strings.EqualFold(m.PackageName, pkg) {
		return "", fmt.Errorf("%w: package %q not found in manifest (declared %q)", ErrConfigurationMissing, pkg, m.PackageName)
	}

	id := strings.TrimSpace(m.MetaData[PublisherIDKey])
	if id == "" {
		return "", fmt.Errorf("%w: publisher ID not found in manifest; add meta_data entry %q with your publisher ID",
			ErrConfigurationMissing, PublisherIDKey)
	}
	return id, nil
}

// LoadFile loads a manifest from a YAML or JSON file.
func LoadFile(path string) (*Manifest, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("manifest file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read manifest file: %w", err)
	}

	m, err := parseManifest(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return sanitizeManifest(m), nil
}

type unmarshalFn func([]byte, any) error

func parseManifest(data []byte, ext string) (Manifest, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if m, err := unmarshalManifest(d.name, data, d.fn); err == nil {
			return m, nil
		}
	}

	return Manifest{}, errors.New("manifest file format not recognized (expected YAML or JSON)")
}

func unmarshalManifest(name string, data []byte, fn unmarshalFn) (Manifest, error) {
	var m Manifest
	if err := fn(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s manifest: %w", name, err)
	}
	return m, nil
}

func sanitizeManifest(m Manifest) *Manifest {
	m.PackageName = strings.TrimSpace(m.PackageName)
	meta := make(map[string]string, len(m.MetaData))
	for k, v := range m.MetaData {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		meta[key] = strings.TrimSpace(v)
	}
	m.MetaData = meta
	return &m
}
