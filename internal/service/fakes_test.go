package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/pkg/password"
	"chat-system/pkg/websocket"
)

// 服务层测试用的内存仓储实现
// 语义与仓储层保持一致（NotFound/Conflict归类、已读推进规则等），
// 使服务逻辑可以在没有数据库的情况下验证

type fakeUserRepo struct {
	nextID     uint
	users      map[uint]*model.User
	activities []*model.UserActivity
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Username == user.Username {
			return apperr.New(apperr.KindConflict, "username already taken")
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "user not found")
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []uint) ([]*model.User, error) {
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) error {
	user, ok := r.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if v, ok := fields["nickname"]; ok {
		user.Nickname = v.(string)
	}
	if v, ok := fields["avatar"]; ok {
		user.Avatar = v.(string)
	}
	return nil
}

func (r *fakeUserRepo) UpdateStatus(ctx context.Context, userID uint, status string, lastSeen time.Time) error {
	user, ok := r.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	user.Status = status
	user.LastSeen = lastSeen
	return nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query string, exclude uint, limit int) ([]*model.User, error) {
	var found []*model.User
	for _, u := range r.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(u.Username, query) || strings.Contains(u.Nickname, query) {
			found = append(found, u)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *fakeUserRepo) RecordActivity(ctx context.Context, activity *model.UserActivity) error {
	activity.CreatedAt = time.Now()
	r.activities = append(r.activities, activity)
	return nil
}

func (r *fakeUserRepo) CountActivities(ctx context.Context, userID uint, action string) (int64, error) {
	var count int64
	for _, a := range r.activities {
		if a.UserID == userID && a.Action == action {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) SumOnlineSeconds(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	for _, a := range r.activities {
		if a.UserID == userID && a.Action == model.ActivityOnline {
			sum += a.Duration
		}
	}
	return sum, nil
}

type fakeGroupRepo struct {
	nextID  uint
	groups  map[uint]*model.Group
	members map[uint][]uint // groupID -> userIDs（按加入顺序）
	users   *fakeUserRepo
}

func newFakeGroupRepo(users *fakeUserRepo) *fakeGroupRepo {
	return &fakeGroupRepo{
		groups:  make(map[uint]*model.Group),
		members: make(map[uint][]uint),
		users:   users,
	}
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *model.Group) error {
	r.nextID++
	group.ID = r.nextID
	group.CreatedAt = time.Now()
	r.groups[group.ID] = group
	r.members[group.ID] = []uint{group.CreatorID}
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id uint) (*model.Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "group not found")
	}
	return group, nil
}

func (r *fakeGroupRepo) AddMember(ctx context.Context, groupID, userID uint) error {
	for _, id := range r.members[groupID] {
		if id == userID {
			return apperr.New(apperr.KindConflict, "already a member")
		}
	}
	r.members[groupID] = append(r.members[groupID], userID)
	return nil
}

func (r *fakeGroupRepo) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	for _, id := range r.members[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGroupRepo) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	return append([]uint(nil), r.members[groupID]...), nil
}

func (r *fakeGroupRepo) Members(ctx context.Context, groupID uint) ([]*model.User, error) {
	return r.users.GetByIDs(ctx, r.members[groupID])
}

func (r *fakeGroupRepo) Search(ctx context.Context, query string, limit int) ([]*model.Group, error) {
	var found []*model.Group
	for _, g := range r.groups {
		if strings.Contains(g.Name, query) {
			found = append(found, g)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

type fakeAttachmentRepo struct {
	mu       *sync.Mutex // 与fakeMessageRepo共享：绑定写入与附件读取互斥
	nextID   uint
	atts     map[uint]*model.Attachment
	messages *fakeMessageRepo
}

func newFakeAttachmentRepo(mu *sync.Mutex) *fakeAttachmentRepo {
	return &fakeAttachmentRepo{mu: mu, atts: make(map[uint]*model.Attachment)}
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *model.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	attachment.ID = r.nextID
	attachment.CreatedAt = time.Now()
	r.atts[attachment.ID] = attachment
	return nil
}

func (r *fakeAttachmentRepo) GetByID(ctx context.Context, id uint) (*model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.atts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "attachment not found")
	}
	return att, nil
}

func (r *fakeAttachmentRepo) ListByMessages(ctx context.Context, messageIDs []uint) (map[uint][]*model.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[uint][]*model.Attachment)
	for _, id := range messageIDs {
		for _, att := range r.atts {
			if att.MessageID != nil && *att.MessageID == id {
				result[id] = append(result[id], att)
			}
		}
		sort.Slice(result[id], func(i, j int) bool { return result[id][i].ID < result[id][j].ID })
	}
	return result, nil
}

func (r *fakeAttachmentRepo) CountBySender(ctx context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, att := range r.atts {
		if att.MessageID == nil {
			continue
		}
		for _, m := range r.messages.messages {
			if m.ID == *att.MessageID && m.SenderID == userID {
				count++
			}
		}
	}
	return count, nil
}

type fakeMessageRepo struct {
	mu       *sync.Mutex
	nextID   uint
	messages []*model.Message
	atts     *fakeAttachmentRepo
	groups   *fakeGroupRepo
}

func newFakeMessageRepo(mu *sync.Mutex, atts *fakeAttachmentRepo, groups *fakeGroupRepo) *fakeMessageRepo {
	return &fakeMessageRepo{mu: mu, atts: atts, groups: groups}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *model.Message, attachmentIDs []uint) error {
	// 仓储侧的绑定是守卫条件更新（message_id IS NULL），
	// 同一互斥段内判定+写入，并发争抢同一附件只有一方成功
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID + 1

	// 事务语义：先全部校验，任一失败则整体不落库
	var toBind []*model.Attachment
	for _, attID := range attachmentIDs {
		att, ok := r.atts.atts[attID]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "attachment %d not found", attID)
		}
		need, err := att.BindTo(id)
		if err != nil {
			return err
		}
		if need {
			toBind = append(toBind, att)
		}
	}

	r.nextID = id
	message.ID = id
	message.CreatedAt = time.Now()
	r.messages = append(r.messages, message)
	for _, att := range toBind {
		msgID := id
		att.MessageID = &msgID
	}
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "message not found")
}

func (r *fakeMessageRepo) List(ctx context.Context, q repository.ListQuery) ([]*model.Message, error) {
	var result []*model.Message
	for _, m := range r.messages {
		if q.SinceID > 0 && m.ID <= q.SinceID {
			continue
		}
		switch q.Target.Kind {
		case model.TargetDirect:
			if m.GroupID != nil || m.RecipientID == nil {
				continue
			}
			direct := (m.SenderID == q.CallerID && *m.RecipientID == q.Target.ID) ||
				(m.SenderID == q.Target.ID && *m.RecipientID == q.CallerID)
			if !direct {
				continue
			}
		case model.TargetGroup:
			if m.GroupID == nil || *m.GroupID != q.Target.ID {
				continue
			}
		default:
			visible := m.SenderID == q.CallerID ||
				(m.RecipientID != nil && *m.RecipientID == q.CallerID)
			if !visible && m.GroupID != nil {
				isMember, _ := r.groups.IsMember(ctx, *m.GroupID, q.CallerID)
				visible = isMember
			}
			if !visible {
				continue
			}
		}
		result = append(result, m)
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) MarkSeenDirect(ctx context.Context, callerID, peerID uint, now time.Time) ([]*model.Message, error) {
	var marked []*model.Message
	for _, m := range r.messages {
		if m.GroupID != nil || m.RecipientID == nil {
			continue
		}
		if m.SenderID == peerID && *m.RecipientID == callerID && m.ReadAt == nil {
			r.stamp(m, now)
			marked = append(marked, m)
		}
	}
	return marked, nil
}

func (r *fakeMessageRepo) MarkSeenGroup(ctx context.Context, callerID, groupID uint, now time.Time) ([]*model.Message, error) {
	var marked []*model.Message
	for _, m := range r.messages {
		if m.GroupID == nil || *m.GroupID != groupID {
			continue
		}
		if m.SenderID != callerID && m.ReadAt == nil {
			r.stamp(m, now)
			marked = append(marked, m)
		}
	}
	return marked, nil
}

// stamp 推进投递状态：delivered_at 缺失时一并补齐
func (r *fakeMessageRepo) stamp(m *model.Message, now time.Time) {
	if m.DeliveredAt == nil {
		t := now
		m.DeliveredAt = &t
	}
	t := now
	m.ReadAt = &t
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, messageID uint, content string) error {
	for _, m := range r.messages {
		if m.ID == messageID {
			m.Content = content
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "message not found")
}

func (r *fakeMessageRepo) Delete(ctx context.Context, messageID uint) ([]string, error) {
	var fileNames []string
	for id, att := range r.atts.atts {
		if att.MessageID != nil && *att.MessageID == messageID {
			fileNames = append(fileNames, att.FileName)
			delete(r.atts.atts, id)
		}
	}
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			break
		}
	}
	return fileNames, nil
}

func (r *fakeMessageRepo) ChattedPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	seen := make(map[uint]bool)
	for _, m := range r.messages {
		if m.RecipientID == nil {
			continue
		}
		if m.SenderID == userID {
			seen[*m.RecipientID] = true
		}
		if *m.RecipientID == userID {
			seen[m.SenderID] = true
		}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeMessageRepo) CountBySender(ctx context.Context, userID uint) (int64, error) {
	var count int64
	for _, m := range r.messages {
		if m.SenderID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	for _, m := range r.messages {
		if m.RecipientID != nil && *m.RecipientID == userID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// sentEvent 记录一次事件推送
// userIDs 为nil表示广播
type sentEvent struct {
	userIDs []uint
	exclude uint
	evt     websocket.Event
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *fakeNotifier) SendToUser(userID uint, evt websocket.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{userIDs: []uint{userID}, evt: evt})
}

func (n *fakeNotifier) SendToUsers(userIDs []uint, evt websocket.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{userIDs: append([]uint(nil), userIDs...), evt: evt})
}

func (n *fakeNotifier) Broadcast(evt websocket.Event, exclude uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{exclude: exclude, evt: evt})
}

func (n *fakeNotifier) eventsOfType(eventType string) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var found []sentEvent
	for _, e := range n.events {
		if e.evt.Type == eventType {
			found = append(found, e)
		}
	}
	return found
}

type fakeFileStore struct {
	removed []string
}

func (f *fakeFileStore) Remove(fileName string) error {
	f.removed = append(f.removed, fileName)
	return nil
}

// fixture 一套互相接好的内存仓储
type fixture struct {
	users    *fakeUserRepo
	groups   *fakeGroupRepo
	atts     *fakeAttachmentRepo
	messages *fakeMessageRepo
	notifier *fakeNotifier
	files    *fakeFileStore
}

func newFixture() *fixture {
	mu := &sync.Mutex{}
	users := newFakeUserRepo()
	groups := newFakeGroupRepo(users)
	atts := newFakeAttachmentRepo(mu)
	messages := newFakeMessageRepo(mu, atts, groups)
	atts.messages = messages
	return &fixture{
		users:    users,
		groups:   groups,
		atts:     atts,
		messages: messages,
		notifier: &fakeNotifier{},
		files:    &fakeFileStore{},
	}
}

// addUser 预置一个用户（密码存哈希）
func (f *fixture) addUser(username, plainPassword string) *model.User {
	hash, _ := password.Hash(plainPassword)
	user := &model.User{
		Username:     username,
		Nickname:     model.DefaultNickname(username),
		PasswordHash: hash,
		Status:       model.StatusOffline,
		LastSeen:     time.Now(),
	}
	_ = f.users.Create(context.Background(), user)
	return user
}

// addGroup 预置一个群组（创建者自动成为成员）
func (f *fixture) addGroup(creatorID uint, name, plainPassword string) *model.Group {
	var hash string
	if plainPassword != "" {
		hash, _ = password.Hash(plainPassword)
	}
	group := &model.Group{Name: name, CreatorID: creatorID, PasswordHash: hash}
	_ = f.groups.Create(context.Background(), group)
	return group
}

// addAttachment 预置一个未绑定附件
func (f *fixture) addAttachment(fileName string) *model.Attachment {
	att := &model.Attachment{
		FileName:     fileName,
		OriginalName: fileName,
		FileType:     model.FileTypeOther,
		Size:         42,
	}
	_ = f.atts.Create(context.Background(), att)
	return att
}

func (f *fixture) messageService() *MessageService {
	return NewMessageService(f.messages, f.users, f.groups, f.atts, f.notifier, f.files)
}

func (f *fixture) groupService() *GroupService {
	return NewGroupService(f.groups, f.users)
}
