// mitra/sources/sqlite/dao.cache.go
package sqlite

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mitra/mitra/types"
)

type SessionCacheDAO struct {
	DB *gorm.DB
}

func NewSessionCacheDAO(db *gorm.DB) *SessionCacheDAO {
	return &SessionCacheDAO{DB: db}
}

// ReplaceSummaries swaps the cached listing for the given records in one
// transaction. The cache always reflects exactly one server response.
func (dao *SessionCacheDAO) ReplaceSummaries(ctx context.Context, records []types.SessionRecord) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CachedMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CachedSession{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for i, rec := range records {
			cs := CachedSession{
				SessionID:  rec.SessionID,
				FirstQuery: rec.FirstQuery,
				Position:   i,
				FetchedAt:  now,
			}
			if err := tx.Create(&cs).Error; err != nil {
				return err
			}
			for j, msg := range rec.Messages {
				cm := CachedMessage{
					SessionID:        rec.SessionID,
					Position:         j,
					QueryText:        msg.QueryText,
					AnswerText:       msg.AnswerText,
					DetectedTopic:    msg.DetectedTopic,
					QuerySentiment:   msg.QuerySentiment,
					DetectedLanguage: msg.DetectedLanguage,
					SourceType:       msg.SourceType,
					Timestamp:        msg.Timestamp,
				}
				if err := tx.Create(&cm).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ListSummaries rebuilds the cached listing in its original order.
func (dao *SessionCacheDAO) ListSummaries(ctx context.Context) ([]types.SessionRecord, error) {
	var sessions []CachedSession
	err := dao.DB.WithContext(ctx).
		Order("position ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	records := make([]types.SessionRecord, 0, len(sessions))
	for _, cs := range sessions {
		var msgs []CachedMessage
		err := dao.DB.WithContext(ctx).
			Where("session_id = ?", cs.SessionID).
			Order("position ASC").
			Find(&msgs).Error
		if err != nil {
			return nil, err
		}
		rec := types.SessionRecord{
			SessionID:  cs.SessionID,
			FirstQuery: cs.FirstQuery,
			Messages:   make([]types.StoredMessage, 0, len(msgs)),
		}
		for _, m := range msgs {
			rec.Messages = append(rec.Messages, types.StoredMessage{
				QueryText:        m.QueryText,
				AnswerText:       m.AnswerText,
				DetectedTopic:    m.DetectedTopic,
				QuerySentiment:   m.QuerySentiment,
				DetectedLanguage: m.DetectedLanguage,
				SourceType:       m.SourceType,
				Timestamp:        m.Timestamp,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}
