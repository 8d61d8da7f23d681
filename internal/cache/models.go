package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// ModelListTTL is how long a cached model listing counts as fresh.
const ModelListTTL = 30 * time.Minute

const appDir = "term-agent"

// modelList is the on-disk form of a cached provider listing.
type modelList struct {
	Models    []string  `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
}

func cacheRoot() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appDir), nil
}

func listPath(provider string) (string, error) {
	root, err := cacheRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, provider+"-models.json"), nil
}

// WriteModels caches a provider's model listing for flag completion.
// The file is written atomically so a concurrent completion never sees
// a partial listing.
func WriteModels(provider string, models []string) error {
	path, err := listPath(provider)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(modelList{Models: models, FetchedAt: time.Now()})
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), provider+"-models-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	renamed = true
	return nil
}

// FreshModels returns the cached listing for a provider, or nil when no
// cache exists, it cannot be read, or it is older than ModelListTTL.
func FreshModels(provider string) []string {
	path, err := listPath(provider)
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var list modelList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	if time.Since(list.FetchedAt) >= ModelListTTL {
		return nil
	}
	return list.Models
}
