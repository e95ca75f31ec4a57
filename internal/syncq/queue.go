// Package syncq stores swaps that bounced off a pair cooldown so the CLI
// can replay them later with `kng sync`.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type Swap struct {
	FromAsset    int64 `json:"from_asset"`
	ToAsset      int64 `json:"to_asset"`
	AmountMicros int64 `json:"amount_micros"`
}

func queuePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".kng")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.json"), nil
}

func Load() ([]Swap, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Swap{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Swap{}, nil
	}
	var out []Swap
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func Save(swaps []Swap) error {
	path, err := queuePath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(swaps, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Push(s Swap) error {
	swaps, err := Load()
	if err != nil {
		return err
	}
	swaps = append(swaps, s)
	return Save(swaps)
}
