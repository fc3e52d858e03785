package approval

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// approvalRow is the GORM model backing GormStore.
type approvalRow struct {
	PluginID    string    `gorm:"primaryKey;column:plugin_id"`
	Permissions string    `gorm:"column:permissions"` // JSON array of identifiers
	GrantedAt   time.Time `gorm:"column:granted_at"`
}

func (approvalRow) TableName() string {
	return "plugin_approvals"
}

// GormStore persists approval records in a user-scoped SQLite database.
// Writes are serialized by a single mutex on top of SQLite's own locking.
type GormStore struct {
	mu sync.Mutex
	db *gorm.DB
}

// OpenGormStore opens (creating if needed) the approvals database at path.
func OpenGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open approvals database: %w", err)
	}
	db.Exec("PRAGMA journal_mode = WAL;")
	if err := db.AutoMigrate(&approvalRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate approvals schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get implements Store.
func (s *GormStore) Get(pluginID string) (*Record, error) {
	var row approvalRow
	err := s.db.Where("plugin_id = ?", pluginID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read approval for %s: %w", pluginID, err)
	}
	return rowToRecord(&row)
}

// Put implements Store. An existing record for the plugin is fully
// replaced, never merged.
func (s *GormStore) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(rec.Permissions.Strings())
	if err != nil {
		return fmt.Errorf("failed to encode approval for %s: %w", rec.PluginID, err)
	}
	row := approvalRow{
		PluginID:    rec.PluginID,
		Permissions: string(raw),
		GrantedAt:   rec.GrantedAt,
	}
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to write approval for %s: %w", rec.PluginID, err)
	}
	return nil
}

// Delete implements Store.
func (s *GormStore) Delete(pluginID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Where("plugin_id = ?", pluginID).Delete(&approvalRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete approval for %s: %w", pluginID, err)
	}
	return nil
}

// List implements Store.
func (s *GormStore) List() ([]*Record, error) {
	var rows []approvalRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	out := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func rowToRecord(row *approvalRow) (*Record, error) {
	var idents []string
	if err := json.Unmarshal([]byte(row.Permissions), &idents); err != nil {
		return nil, fmt.Errorf("corrupt approval record for %s: %w", row.PluginID, err)
	}
	set, _ := permission.ParseAll(idents)
	return &Record{
		PluginID:    row.PluginID,
		Permissions: set,
		GrantedAt:   row.GrantedAt,
	}, nil
}
