package database

import "gorm.io/gorm"

type RecordingRepository struct {
	db *gorm.DB
}

func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

func (r *RecordingRepository) CreateRecording(rec *Recording) error {
	return r.db.Create(rec).Error
}

func (r *RecordingRepository) GetRecordingByID(id uint) (*Recording, error) {
	var rec Recording
	if err := r.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecordingRepository) ListRecordings(limit, offset int) ([]Recording, error) {
	var recs []Recording
	if err := r.db.Order("id DESC").Limit(limit).Offset(offset).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *RecordingRepository) UpdateRecording(id uint, fields map[string]any) error {
	return r.db.Model(&Recording{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *RecordingRepository) MarkRecording(id uint, format, p1, p2, endTurn string) error {
	return r.UpdateRecording(id, map[string]any{
		"status":   StatusRecording,
		"format":   format,
		"player1":  p1,
		"player2":  p2,
		"end_turn": endTurn,
	})
}

func (r *RecordingRepository) CompleteRecording(id uint, stopReason, filePath, gifPath string) error {
	return r.UpdateRecording(id, map[string]any{
		"status":      StatusCompleted,
		"stop_reason": stopReason,
		"file_path":   filePath,
		"gif_path":    gifPath,
	})
}

func (r *RecordingRepository) FailRecording(id uint, reason string) error {
	return r.UpdateRecording(id, map[string]any{
		"status": StatusFailed,
		"error":  reason,
	})
}
