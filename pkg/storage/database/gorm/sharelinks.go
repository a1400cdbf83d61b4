package gorm

import (
	"context"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"gorm.io/gorm"
)

func (s *Gorm) CreateShareLink(ctx context.Context, link *models.ShareLink) error {
	res := s.db.WithContext(ctx).Create(link)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return ErrDuplicateToken
		}
		return res.Error
	}
	return nil
}

func (s *Gorm) GetShareLink(ctx context.Context, id string) (models.ShareLink, error) {
	var link models.ShareLink
	res := s.db.WithContext(ctx).First(&link, "id = ?", id)
	return link, translate(res.Error)
}

func (s *Gorm) GetShareLinkByToken(ctx context.Context, token string) (models.ShareLink, error) {
	var link models.ShareLink
	res := s.db.WithContext(ctx).First(&link, "token = ?", token)
	return link, translate(res.Error)
}

func (s *Gorm) ListShareLinks(ctx context.Context, ownerID string, resourceID string) ([]models.ShareLink, error) {
	var links []models.ShareLink

	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if resourceID != "" {
		q = q.Where("resource_id = ?", resourceID)
	}

	res := q.Order("created_at DESC").Find(&links)
	if res.Error != nil {
		return nil, res.Error
	}
	return links, nil
}

// RevokeShareLink deactivates the link. Revoking an inactive link is a no-op.
func (s *Gorm) RevokeShareLink(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.ShareLink{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": s.db.NowFunc(),
		})
	return res.Error
}

func (s *Gorm) DeleteShareLink(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("share_link_id = ?", id).Delete(&models.AccessLogEntry{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.ShareLink{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Gorm) RecordGrant(ctx context.Context, linkID string, entry *models.AccessLogEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ShareLink{}).
			Where("id = ? AND is_active = ?", linkID, true).
			Where("(max_access_count = 0 OR access_count < max_access_count)").
			Where("(expires_at IS NULL OR expires_at > ?)", entry.Timestamp).
			Updates(map[string]any{
				"access_count":     gorm.Expr("access_count + 1"),
				"last_accessed_at": entry.Timestamp,
				"updated_at":       entry.Timestamp,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGrantRejected
		}

		return tx.Create(entry).Error
	})
}

func (s *Gorm) AppendAccessLog(ctx context.Context, entry *models.AccessLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Gorm) ListAccessLog(ctx context.Context, linkID string) ([]models.AccessLogEntry, error) {
	var entries []models.AccessLogEntry
	res := s.db.WithContext(ctx).
		Where("share_link_id = ?", linkID).
		Order("timestamp ASC, id ASC").
		Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}
	return entries, nil
}
