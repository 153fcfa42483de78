package playledger

import (
	"context"
	"strconv"
	"time"

	"meeplepoint-rewards/pkg/db/option"
	"meeplepoint-rewards/pkg/db/pagination"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns the play ledger. The once-per-day gate lives in the
// (user_id, game_id, play_day) unique index; Mark relies on it instead
// of a read-then-write check so concurrent awards cannot both pass.
type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	plays repository.Repository[PlayRecord]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		plays: repository.ProvideStore[PlayRecord](p.DB),
	}
}

// Mark inserts the play record for (userID, gameID, day). It returns
// (true, rec) when this call won the gate and (false, existing) when a
// record already exists. tx may be an open transaction; the insert then
// commits or rolls back with the caller's other writes.
func (s *Service) Mark(ctx context.Context, tx *gorm.DB, rec *PlayRecord) (bool, *PlayRecord, error) {
	if tx == nil {
		tx = s.db
	}
	if rec.ID == 0 {
		rec.ID = s.node.Generate()
	}
	if rec.AwardedAt.IsZero() {
		rec.AwardedAt = time.Now().UTC()
	}

	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}, {Name: "play_day"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, rec, nil
	}

	existing, err := s.find(ctx, tx, rec.UserID, rec.GameID, rec.PlayDay)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// Get returns the play record for (userID, gameID, day), or nil when the
// user has not been awarded for that game on that day.
func (s *Service) Get(ctx context.Context, userID, gameID, day string) (*PlayRecord, error) {
	return s.find(ctx, s.db, userID, gameID, day)
}

// ListByDay returns a user's plays for a single day, oldest first.
func (s *Service) ListByDay(ctx context.Context, userID, day string) ([]*PlayRecord, error) {
	return s.plays.Find(ctx, &PlayRecord{UserID: userID, PlayDay: day},
		option.WithSortBy(option.QuerySortBy{SortBy: "awarded_at", OrderBy: "ASC", Allow: map[string]bool{"awarded_at": true}}))
}

// History returns one page of a user's plays, newest first. Snowflake
// ids are time-ordered, so the keyset cursor walks id alone.
func (s *Service) History(ctx context.Context, userID string, page pagination.Pagination) ([]PlayRecord, *pagination.PageInfo, error) {
	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit + 1)

	if page.Cursor != "" {
		cur, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		id, err := strconv.ParseInt(cur.ID, 10, 64)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		q = q.Where("id < ?", id)
	}

	var plays []PlayRecord
	if err := q.Find(&plays).Error; err != nil {
		return nil, nil, err
	}

	return pagination.Trim(plays, limit, func(p PlayRecord) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.String()}
	})
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, userID, gameID, day string) (*PlayRecord, error) {
	var rec PlayRecord
	err := tx.WithContext(ctx).
		Where("user_id = ? AND game_id = ? AND play_day = ?", userID, gameID, day).
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
