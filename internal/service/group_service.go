package service

import (
	"context"
	"strings"

	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/pkg/password"
)

// GroupService 群组服务
// 创建者自创建起即为成员；入群密码可选，空密码群组接受任意凭证
type GroupService struct {
	groupRepo GroupRepo
	userRepo  UserRepo
}

// NewGroupService 创建GroupService实例
func NewGroupService(groupRepo GroupRepo, userRepo UserRepo) *GroupService {
	return &GroupService{groupRepo: groupRepo, userRepo: userRepo}
}

// CreateGroup 创建群组
// 群组记录与创建者成员关系由仓储在同一事务写入
func (s *GroupService) CreateGroup(ctx context.Context, creatorID uint, name, description, plainPassword, avatar string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "group name is required")
	}
	if _, err := s.userRepo.GetByID(ctx, creatorID); err != nil {
		return nil, err
	}

	var hash string
	if plainPassword != "" {
		h, err := password.Hash(plainPassword)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "hash group password failed", err)
		}
		hash = h
	}

	group := &model.Group{
		Name:         name,
		Description:  description,
		Avatar:       avatar,
		CreatorID:    creatorID,
		PasswordHash: hash,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// JoinGroup 加入群组
// 已是成员返回冲突（幂等保护）；有密码的群组校验密码，
// 不匹配返回禁止访问；并发重复加入由唯一索引兜底
func (s *GroupService) JoinGroup(ctx context.Context, userID, groupID uint, plainPassword string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	isMember, err := s.groupRepo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if isMember {
		return apperr.New(apperr.KindConflict, "already a member")
	}

	if group.PasswordHash != "" && !password.Verify(plainPassword, group.PasswordHash) {
		return apperr.New(apperr.KindForbidden, "wrong group password")
	}

	return s.groupRepo.AddMember(ctx, groupID, userID)
}

// IsMember 判断用户是否为群成员
func (s *GroupService) IsMember(ctx context.Context, userID, groupID uint) (bool, error) {
	return s.groupRepo.IsMember(ctx, groupID, userID)
}

// SearchGroups 搜索群组
func (s *GroupService) SearchGroups(ctx context.Context, query string) ([]*model.Group, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindValidation, "search query is required")
	}
	return s.groupRepo.Search(ctx, query, 50)
}

// Members 群成员列表（仅成员可见）
func (s *GroupService) Members(ctx context.Context, callerID, groupID uint) ([]*model.User, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	isMember, err := s.groupRepo.IsMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperr.New(apperr.KindForbidden, "not a member of the group")
	}
	return s.groupRepo.Members(ctx, groupID)
}
