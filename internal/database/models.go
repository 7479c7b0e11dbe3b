// Package database хранит историю записей реплеев в PostgreSQL.
// Использует GORM ORM с prepared statements для защиты от SQL injection.
package database

import "time"

const (
	StatusPending   = "pending"
	StatusRecording = "recording"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recording представляет одну запись реплея.
// Статусы: pending, recording, completed, failed.
type Recording struct {
	ID         uint      `gorm:"primaryKey"`
	Link       string    `gorm:"type:text;not null"` // Ссылка на реплей
	Format     string    `gorm:"type:varchar(128)"`  // Формат боя
	Player1    string    `gorm:"type:varchar(64)"`
	Player2    string    `gorm:"type:varchar(64)"`
	StartTurn  int       `gorm:"not null;default:0"`
	EndTurn    string    `gorm:"type:varchar(16)"`                            // Порог остановки (может быть дробным)
	Status     string    `gorm:"type:varchar(32);not null;default:'pending'"` // Статус записи
	StopReason string    `gorm:"type:varchar(32)"`                            // threshold, victory, timeout...
	FilePath   string    `gorm:"type:text"`                                   // Путь к видео
	GIFPath    string    `gorm:"column:gif_path;type:text"`
	Error      string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}
