package app

import (
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/talkincode/eazybuy/internal/domain"
	"github.com/talkincode/eazybuy/pkg/common"
	"go.uber.org/zap"
)

// ConfigManager reads and writes runtime settings stored in sys_config.
// Values are cached for a short window; the admin console writes through
// Set. In demo mode it degrades to a process-local map.
type ConfigManager struct {
	app   *Application
	mu    sync.RWMutex
	cache map[string]cacheEntry
	local map[string]string // demo mode storage
}

type cacheEntry struct {
	value    string
	loadedAt time.Time
}

const configCacheTTL = 30 * time.Second

func NewConfigManager(app *Application) *ConfigManager {
	return &ConfigManager{
		app:   app,
		cache: make(map[string]cacheEntry),
		local: make(map[string]string),
	}
}

func (m *ConfigManager) get(category, name string) string {
	key := category + "." + name

	m.mu.RLock()
	if entry, ok := m.cache[key]; ok && time.Since(entry.loadedAt) < configCacheTTL {
		m.mu.RUnlock()
		return entry.value
	}
	m.mu.RUnlock()

	if m.app.gormDB == nil {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.local[key]
	}

	var row domain.SysConfig
	err := m.app.gormDB.Where("type = ? AND name = ?", category, name).First(&row).Error
	if err != nil {
		return ""
	}

	m.mu.Lock()
	m.cache[key] = cacheEntry{value: row.Value, loadedAt: time.Now()}
	m.mu.Unlock()
	return row.Value
}

// Set writes a setting and refreshes the cache.
func (m *ConfigManager) Set(category, name, value string) error {
	key := category + "." + name

	if m.app.gormDB == nil {
		m.mu.Lock()
		m.local[key] = value
		m.cache[key] = cacheEntry{value: value, loadedAt: time.Now()}
		m.mu.Unlock()
		return nil
	}

	var row domain.SysConfig
	err := m.app.gormDB.Where("type = ? AND name = ?", category, name).First(&row).Error
	if err != nil {
		err = m.app.gormDB.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	} else {
		err = m.app.gormDB.Model(&domain.SysConfig{}).
			Where("id = ?", row.ID).
			Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error
	}
	if err != nil {
		zap.L().Error("failed to save setting",
			zap.String("category", category), zap.String("name", name), zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.cache[key] = cacheEntry{value: value, loadedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

func (m *ConfigManager) GetString(category, name string) string {
	return m.get(category, name)
}

func (m *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(m.get(category, name))
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.get(category, name))
}

func (m *ConfigManager) GetFloat64(category, name string) float64 {
	return cast.ToFloat64(m.get(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.get(category, name))
}
