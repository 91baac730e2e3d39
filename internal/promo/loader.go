package promo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// resultsFile is the on-disk format written by the flyer analysis pipeline,
// one file per store.
type resultsFile struct {
	Store      string      `json:"store"`
	ScrapedAt  string      `json:"scraped_at"`
	Promotions []Promotion `json:"promotions"`
}

// LoadDir reads every *_promotions.json file in dir and builds a catalog.
// Unreadable or malformed files are skipped with a warning so one bad store
// dump cannot take down the whole catalog. A missing directory yields an
// empty catalog.
func LoadDir(dir string) (*Catalog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_promotions.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob promotion files: %w", err)
	}

	var promotions []Promotion
	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			log.Warn().Err(err).Str("file", match).Msg("Failed to read promotion file")
			continue
		}

		var rf resultsFile
		if err := json.Unmarshal(data, &rf); err != nil {
			log.Warn().Err(err).Str("file", match).Msg("Failed to parse promotion file")
			continue
		}
		promotions = append(promotions, rf.Promotions...)
	}

	catalog := NewCatalog(promotions)
	log.Info().Int("files", len(matches)).Int("promotions", catalog.Len()).Str("dir", dir).Msg("Promotion catalog loaded")
	return catalog, nil
}
