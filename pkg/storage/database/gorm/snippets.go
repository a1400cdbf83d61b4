package gorm

import (
	"context"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"gorm.io/gorm"
)

func (s *Gorm) CreateSnippet(ctx context.Context, snippet *models.Snippet) error {
	for i := range snippet.History {
		if snippet.History[i].ID == 0 {
			snippet.History[i].ID = s.snow.Generate().Int64()
		}
	}
	return s.db.WithContext(ctx).Create(snippet).Error
}

// UpdateSnippet replaces the snippet's content and keeps the previous
// content as a revision.
func (s *Gorm) UpdateSnippet(ctx context.Context, id string, title string, content string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Snippet
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		revision := models.SnippetRevision{
			ID:        s.snow.Generate().Int64(),
			SnippetID: id,
			Content:   current.Content,
		}
		if err := tx.Create(&revision).Error; err != nil {
			return err
		}

		return tx.Model(&current).Updates(map[string]any{
			"title":      title,
			"content":    content,
			"updated_at": tx.NowFunc(),
		}).Error
	})
}

func (s *Gorm) GetSnippet(ctx context.Context, id string) (models.Snippet, error) {
	var snippet models.Snippet
	res := s.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&snippet, "id = ?", id)
	return snippet, translate(res.Error)
}

// DeleteSnippet removes the snippet along with every share link pointing at
// it and those links' access logs.
func (s *Gorm) DeleteSnippet(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linkIDs := tx.Model(&models.ShareLink{}).Select("id").Where("resource_id = ?", id)

		if err := tx.Where("share_link_id IN (?)", linkIDs).Delete(&models.AccessLogEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", id).Delete(&models.ShareLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("snippet_id = ?", id).Delete(&models.SnippetRevision{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.Snippet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
