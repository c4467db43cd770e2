package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/robottwo/exline/internal/cmdline"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type HistoryManager struct {
	db *gorm.DB
}

// HistoryEntry is an accepted command line together with its
// classification at the end of the line.
type HistoryEntry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Line      string `gorm:"index"`
	Kind      string
	Command   string `gorm:"index"`
	SessionID string `gorm:"index"`
}

func NewHistoryManager(dbFilePath string) (*HistoryManager, error) {
	// - busy_timeout(5000): wait for other exline processes instead of failing
	// - synchronous(1): NORMAL mode for durability/performance balance
	// - temp_store(2): MEMORY
	connectionString := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=synchronous(1)&_pragma=temp_store(2)", dbFilePath)

	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", dbFilePath, err)
	}

	if err := db.AutoMigrate(&HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite serializes writes anyway, so multiple connections add overhead
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &HistoryManager{
		db: db,
	}, nil
}

// Close closes the database connection. This should be called when the
// HistoryManager is no longer needed, especially in tests to allow cleanup
// of temporary database files on Windows.
func (historyManager *HistoryManager) Close() error {
	sqlDB, err := historyManager.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add records an accepted line. Blank lines are not recorded and yield a nil
// entry.
func (historyManager *HistoryManager) Add(line string, result cmdline.Result, sessionID string) (*HistoryEntry, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	entry := HistoryEntry{
		Line:      line,
		Kind:      result.Kind.String(),
		Command:   result.Command,
		SessionID: sessionID,
	}

	if err := historyManager.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to add history entry: %w", err)
	}

	return &entry, nil
}

// GetRecentEntries returns up to limit of the newest entries, oldest first.
func (historyManager *HistoryManager) GetRecentEntries(limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	result := historyManager.db.Order("created_at desc, id desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return lo.Reverse(entries), nil
}

// GetAllEntries returns all history entries ordered by creation time (newest first)
func (historyManager *HistoryManager) GetAllEntries() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	result := historyManager.db.Order("created_at desc, id desc").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

func (historyManager *HistoryManager) DeleteEntry(id uint) error {
	result := historyManager.db.Delete(&HistoryEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no history entry found with id %d", id)
	}

	return nil
}

func (historyManager *HistoryManager) ResetHistory() error {
	result := historyManager.db.Exec("DELETE FROM history_entries")
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// Trim deletes all but the newest keep entries and returns how many were
// removed.
func (historyManager *HistoryManager) Trim(keep int) (int64, error) {
	if keep <= 0 {
		result := historyManager.db.Where("1 = 1").Delete(&HistoryEntry{})
		if result.Error != nil {
			return 0, fmt.Errorf("failed to trim history: %w", result.Error)
		}
		return result.RowsAffected, nil
	}
	newest := historyManager.db.Model(&HistoryEntry{}).Select("id").Order("created_at desc, id desc").Limit(keep)
	result := historyManager.db.Where("id NOT IN (?)", newest).Delete(&HistoryEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GetRecentEntriesByPrefix returns up to limit entries whose line starts with
// prefix, newest first.
func (historyManager *HistoryManager) GetRecentEntriesByPrefix(prefix string, limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	result := historyManager.db.Where(`line LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

// GetEntriesSince returns all history entries created after the given time, ordered by creation time (oldest first)
func (historyManager *HistoryManager) GetEntriesSince(since time.Time) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	result := historyManager.db.Where("created_at >= ?", since).
		Order("created_at asc, id asc").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
