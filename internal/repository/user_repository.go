package repository

import (
	"context"
	"errors"
	"time"

	"chat-system/internal/apperr"
	"chat-system/internal/model"

	"gorm.io/gorm"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	orm *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{orm: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.orm.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.KindConflict, "username already taken", err)
		}
		return apperr.Wrap(apperr.KindStorage, "create user failed", err)
	}
	return nil
}

// GetByID 根据ID获取用户
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "query user failed", err)
	}
	return &u, nil
}

// GetByUsername 根据用户名获取用户
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.orm.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "query user failed", err)
	}
	return &u, nil
}

// GetByIDs 批量获取用户
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []*model.User
	if err := r.orm.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query users failed", err)
	}
	return users, nil
}

// UpdateProfile 更新昵称/头像
func (r *UserRepository) UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.orm.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(fields).Error; err != nil {
		return apperr.Wrap(apperr.KindStorage, "update profile failed", err)
	}
	return nil
}

// UpdateStatus 更新在线状态与最近在线时间
func (r *UserRepository) UpdateStatus(ctx context.Context, userID uint, status string, lastSeen time.Time) error {
	if err := r.orm.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"status": status, "last_seen": lastSeen}).Error; err != nil {
		return apperr.Wrap(apperr.KindStorage, "update status failed", err)
	}
	return nil
}

// Search 按用户名/昵称模糊搜索，排除指定用户
func (r *UserRepository) Search(ctx context.Context, query string, exclude uint, limit int) ([]*model.User, error) {
	var users []*model.User
	pattern := "%" + query + "%"
	if err := r.orm.WithContext(ctx).
		Where("(username LIKE ? OR nickname LIKE ?) AND id <> ?", pattern, pattern, exclude).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "search users failed", err)
	}
	return users, nil
}

// RecordActivity 写入活动记录
func (r *UserRepository) RecordActivity(ctx context.Context, activity *model.UserActivity) error {
	if err := r.orm.WithContext(ctx).Create(activity).Error; err != nil {
		return apperr.Wrap(apperr.KindStorage, "record activity failed", err)
	}
	return nil
}

// CountActivities 统计指定类型的活动次数
func (r *UserRepository) CountActivities(ctx context.Context, userID uint, action string) (int64, error) {
	var count int64
	if err := r.orm.WithContext(ctx).Model(&model.UserActivity{}).
		Where("user_id = ? AND action = ?", userID, action).
		Count(&count).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "count activities failed", err)
	}
	return count, nil
}

// SumOnlineSeconds 统计累计在线时长（秒）
func (r *UserRepository) SumOnlineSeconds(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := r.orm.WithContext(ctx).Model(&model.UserActivity{}).
		Where("user_id = ? AND action = ?", userID, model.ActivityOnline).
		Select("COALESCE(SUM(duration), 0)").
		Scan(&total).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "sum online seconds failed", err)
	}
	return total, nil
}
