// Package store persists saved connection configs, reusable credentials and
// deployment history in a local sqlite database.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/buildforever/farmctl/internal/fault"
)

// SavedConfig is one named configuration file snapshot.
type SavedConfig struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	YAML      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is one reusable control-plane credential set. At most one
// credential is the default.
type Credential struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Host        string `gorm:"not null"`
	Port        int
	User        string `gorm:"not null"`
	Password    string
	TokenName   string
	TokenSecret string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Redacted returns a copy safe for display.
func (c Credential) Redacted() Credential {
	if c.Password != "" {
		c.Password = "********"
	}
	if c.TokenSecret != "" {
		c.TokenSecret = "********"
	}
	return c
}

// DeploymentRecord is one completed (or failed) provisioning run.
type DeploymentRecord struct {
	ID         uint `gorm:"primaryKey"`
	Node       string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
	// Report is the JSON-encoded per-resource outcome list.
	Report string
}

// Store wraps the sqlite database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&SavedConfig{}, &Credential{}, &DeploymentRecord{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveConfig inserts or updates the named config snapshot.
func (s *Store) SaveConfig(name, yamlBody string) error {
	cfg := SavedConfig{Name: name, YAML: yamlBody}
	err := s.db.Where(SavedConfig{Name: name}).
		Assign(SavedConfig{YAML: yamlBody}).
		FirstOrCreate(&cfg).Error
	if err != nil {
		return fmt.Errorf("save config %q: %w", name, err)
	}
	return nil
}

// GetConfig returns the named config snapshot.
func (s *Store) GetConfig(name string) (SavedConfig, error) {
	var cfg SavedConfig
	err := s.db.Where(SavedConfig{Name: name}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SavedConfig{}, fault.Newf(fault.Validation, "no saved config named %q", name)
	}
	if err != nil {
		return SavedConfig{}, fmt.Errorf("load config %q: %w", name, err)
	}
	return cfg, nil
}

// ListConfigs returns all snapshots, newest first.
func (s *Store) ListConfigs() ([]SavedConfig, error) {
	var configs []SavedConfig
	if err := s.db.Order("updated_at desc").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return configs, nil
}

// DeleteConfig removes the named snapshot. Deleting a missing config is not
// an error.
func (s *Store) DeleteConfig(name string) error {
	if err := s.db.Where(SavedConfig{Name: name}).Delete(&SavedConfig{}).Error; err != nil {
		return fmt.Errorf("delete config %q: %w", name, err)
	}
	return nil
}

// SaveCredential inserts or updates the named credential. When asDefault is
// set the previous default is cleared in the same transaction.
func (s *Store) SaveCredential(cred Credential, asDefault bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if asDefault {
			if err := tx.Model(&Credential{}).Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
			cred.IsDefault = true
		}
		existing := Credential{Name: cred.Name}
		return tx.Where(Credential{Name: cred.Name}).
			Assign(cred).
			FirstOrCreate(&existing).Error
	})
}

// DefaultCredential returns the credential marked as default.
func (s *Store) DefaultCredential() (Credential, error) {
	var cred Credential
	err := s.db.Where("is_default = ?", true).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Credential{}, fault.Newf(fault.Validation, "no default credential configured")
	}
	if err != nil {
		return Credential{}, fmt.Errorf("load default credential: %w", err)
	}
	return cred, nil
}

// GetCredential returns the named credential.
func (s *Store) GetCredential(name string) (Credential, error) {
	var cred Credential
	err := s.db.Where(Credential{Name: name}).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Credential{}, fault.Newf(fault.Validation, "no credential named %q", name)
	}
	if err != nil {
		return Credential{}, fmt.Errorf("load credential %q: %w", name, err)
	}
	return cred, nil
}

// ListCredentials returns all credentials with secrets redacted.
func (s *Store) ListCredentials() ([]Credential, error) {
	var creds []Credential
	if err := s.db.Order("name").Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	for i := range creds {
		creds[i] = creds[i].Redacted()
	}
	return creds, nil
}

// DeleteCredential removes the named credential.
func (s *Store) DeleteCredential(name string) error {
	if err := s.db.Where(Credential{Name: name}).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("delete credential %q: %w", name, err)
	}
	return nil
}

// RecordDeployment appends one run to the history.
func (s *Store) RecordDeployment(rec DeploymentRecord) error {
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("record deployment: %w", err)
	}
	return nil
}

// History returns the most recent runs, newest first.
func (s *Store) History(limit int) ([]DeploymentRecord, error) {
	var recs []DeploymentRecord
	q := s.db.Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load deployment history: %w", err)
	}
	return recs, nil
}
