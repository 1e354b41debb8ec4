package repository

import (
	"context"
	"errors"

	"chat-system/internal/apperr"
	"chat-system/internal/model"

	"gorm.io/gorm"
)

// GroupRepository 群组数据仓储
type GroupRepository struct {
	orm *gorm.DB
}

// NewGroupRepository 创建GroupRepository实例
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{orm: db}
}

// Create 创建群组并在同一事务内写入创建者成员关系
// 保证"创建者自创建起即为成员"的不变式
func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	err := r.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		member := &model.GroupMember{GroupID: group.ID, UserID: group.CreatorID}
		return tx.Create(member).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "create group failed", err)
	}
	return nil
}

// GetByID 根据ID获取群组
func (r *GroupRepository) GetByID(ctx context.Context, id uint) (*model.Group, error) {
	var g model.Group
	if err := r.orm.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "group not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "query group failed", err)
	}
	return &g, nil
}

// AddMember 添加群成员
// 依赖(group_id, user_id)唯一索引做原子去重：并发重复加入只会成功一次
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uint) error {
	member := &model.GroupMember{GroupID: groupID, UserID: userID}
	if err := r.orm.WithContext(ctx).Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.KindConflict, "already a member")
		}
		return apperr.Wrap(apperr.KindStorage, "add member failed", err)
	}
	return nil
}

// IsMember 判断用户是否为群成员
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	if err := r.orm.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.KindStorage, "query membership failed", err)
	}
	return count > 0, nil
}

// MemberIDs 获取群成员ID列表
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	if err := r.orm.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query member ids failed", err)
	}
	return ids, nil
}

// Members 获取群成员用户列表
func (r *GroupRepository) Members(ctx context.Context, groupID uint) ([]*model.User, error) {
	var users []*model.User
	if err := r.orm.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN group_member ON group_member.user_id = user.id").
		Where("group_member.group_id = ?", groupID).
		Order("user.id ASC").
		Find(&users).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query members failed", err)
	}
	return users, nil
}

// Search 按群名模糊搜索
func (r *GroupRepository) Search(ctx context.Context, query string, limit int) ([]*model.Group, error) {
	var groups []*model.Group
	if err := r.orm.WithContext(ctx).
		Where("name LIKE ?", "%"+query+"%").
		Order("id ASC").
		Limit(limit).
		Find(&groups).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "search groups failed", err)
	}
	return groups, nil
}
