package out

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mentorpay/internal/modules/settlement/domain"
	settlementout "mentorpay/internal/modules/settlement/port/out"
)

// FileManifestStore reads settlement/plugin.json. Relative binary paths are
// resolved against the manifest directory.
type FileManifestStore struct {
	path string
}

func NewFileManifestStore(path string) settlementout.ManifestStore {
	return &FileManifestStore{path: path}
}

func (s *FileManifestStore) Load(_ context.Context) (domain.Manifest, bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Manifest{}, false, nil
		}
		return domain.Manifest{}, false, fmt.Errorf("read settlement manifest: %w", err)
	}
	var manifest domain.Manifest
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&manifest); err != nil {
		return domain.Manifest{}, false, fmt.Errorf("decode settlement manifest: %w", err)
	}
	if manifest.Binary != "" && !filepath.IsAbs(manifest.Binary) {
		manifest.Binary = filepath.Clean(filepath.Join(filepath.Dir(s.path), manifest.Binary))
	}
	return manifest, true, nil
}
