package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

type storeFile struct {
	ReportChannels map[string]string `json:"report_channels"`
}

// Older files hold channel ids as JSON numbers, so reading accepts both
type storeFileIn struct {
	ReportChannels map[string]interface{} `json:"report_channels"`
}

var decoder = sonic.Config{UseNumber: true}.Froze()

// Store keeps the report channel of every guild and persists it to a JSON file
type Store struct {
	mu             sync.Mutex
	path           string
	reportChannels map[string]string
}

// LoadStore reads the file at path. A missing or unreadable file gives an empty store
func LoadStore(path string) *Store {
	store := &Store{path: path, reportChannels: map[string]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", path).Msg("No config file yet, starting without report channels")
		return store
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error loading config")
		return store
	}

	var contents storeFileIn
	if err := decoder.Unmarshal(data, &contents); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error loading config")
		return store
	}
	for guildID, value := range contents.ReportChannels {
		switch channelID := value.(type) {
		case string:
			store.reportChannels[guildID] = channelID
		case json.Number:
			store.reportChannels[guildID] = channelID.String()
		default:
			log.Warn().Str("guild", guildID).Msg(fmt.Sprintf("Ignoring report channel of unexpected type %T", value))
		}
	}
	log.Info().Int("guilds", len(store.reportChannels)).Msg("Loaded report channels")
	return store
}

func (s *Store) ReportChannel(guildID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channelID, ok := s.reportChannels[guildID]
	return channelID, ok
}

// SetReportChannel binds the report channel of a guild and rewrites the whole file.
// The in-memory value is updated even if writing fails
func (s *Store) SetReportChannel(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportChannels[guildID] = channelID
	return s.save()
}

// save writes to a temporary file first and renames it over the old one
func (s *Store) save() error {
	data, err := sonic.Marshal(storeFile{ReportChannels: s.reportChannels})
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not save config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	return nil
}
