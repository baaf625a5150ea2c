package ml

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"exam-score/internal/common"

	"github.com/rs/zerolog/log"
)

// BundleStore persists packaged bundles by version.
type BundleStore interface {
	PutBundle(version string, data []byte) error
	GetBundle(version string) ([]byte, error)
	ListVersions() ([]string, error) // ascending key order
	SetActive(version string) error
	ActiveVersion() (string, error) // "" when none is active
}

// VersionInfo summarizes a stored bundle.
type VersionInfo struct {
	Version   string        `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Metadata  ModelMetadata `json:"metadata"`
	IsActive  bool          `json:"is_active"`
}

// ModelManager handles bundle versioning and rollback
type ModelManager struct {
	store BundleStore
}

// NewModelManager creates a new model manager
func NewModelManager(store BundleStore) *ModelManager {
	return &ModelManager{store: store}
}

// Import validates b and stores it as a new, inactive version.
func (mm *ModelManager) Import(b Bundle) (string, error) {
	if b.Version == "" {
		b.Version = time.Now().Format(common.VersionLayout)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	// decode once so broken bundles never reach the store
	if _, err := LoadBundle(b, ModelOptions{}); err != nil {
		return "", fmt.Errorf("bundle %s is not loadable: %w", b.Version, err)
	}

	versions, err := mm.store.ListVersions()
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if v == b.Version {
			return "", fmt.Errorf("version %s already exists", b.Version)
		}
	}

	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}
	if err := mm.store.PutBundle(b.Version, data); err != nil {
		return "", err
	}

	log.Info().Str("version", b.Version).Msg("Bundle imported")
	return b.Version, nil
}

// Activate marks a stored version as the one loaded at startup.
func (mm *ModelManager) Activate(version string) error {
	if _, err := mm.Get(version); err != nil {
		return err
	}
	if err := mm.store.SetActive(version); err != nil {
		return err
	}
	log.Info().Str("version", version).Msg("Bundle activated")
	return nil
}

// Rollback activates the version created before the active one.
func (mm *ModelManager) Rollback() (string, error) {
	bundles, err := mm.history()
	if err != nil {
		return "", err
	}
	if len(bundles) < 2 {
		return "", fmt.Errorf("no previous version available for rollback")
	}

	active, err := mm.store.ActiveVersion()
	if err != nil {
		return "", err
	}
	currentIdx := -1
	for i, b := range bundles {
		if b.Version == active {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return "", fmt.Errorf("no active version found")
	}
	if currentIdx == 0 {
		return "", fmt.Errorf("no previous version available")
	}

	prev := bundles[currentIdx-1].Version
	return prev, mm.Activate(prev)
}

// Get returns a stored bundle.
func (mm *ModelManager) Get(version string) (Bundle, error) {
	data, err := mm.store.GetBundle(version)
	if err != nil {
		return Bundle{}, fmt.Errorf("version %s: %w", version, err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle %s: %w", version, err)
	}
	return b, nil
}

// Active returns the active bundle.
func (mm *ModelManager) Active() (Bundle, error) {
	version, err := mm.store.ActiveVersion()
	if err != nil {
		return Bundle{}, err
	}
	if version == "" {
		return Bundle{}, fmt.Errorf("no active bundle")
	}
	return mm.Get(version)
}

// List returns every stored version, oldest first.
func (mm *ModelManager) List() ([]VersionInfo, error) {
	bundles, err := mm.history()
	if err != nil {
		return nil, err
	}
	active, err := mm.store.ActiveVersion()
	if err != nil {
		return nil, err
	}

	infos := make([]VersionInfo, 0, len(bundles))
	for _, b := range bundles {
		infos = append(infos, VersionInfo{
			Version:   b.Version,
			CreatedAt: b.CreatedAt,
			Metadata:  b.Metadata,
			IsActive:  b.Version == active,
		})
	}
	return infos, nil
}

// history returns the stored bundles sorted by creation time. Bundles created at the
// same instant keep the store's key order.
func (mm *ModelManager) history() ([]Bundle, error) {
	versions, err := mm.store.ListVersions()
	if err != nil {
		return nil, err
	}

	bundles := make([]Bundle, 0, len(versions))
	for _, v := range versions {
		b, err := mm.Get(v)
		if err != nil {
			return nil, err
		}
		b.Version = v
		bundles = append(bundles, b)
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].CreatedAt.Before(bundles[j].CreatedAt)
	})
	return bundles, nil
}
