package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/notification"
	"github.com/google/uuid"
)

type notificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*notification.Notification
	preferences   map[string]*notification.NotificationPreference // key: user_id|type
}

// NewNotificationRepository creates an in-memory notification store
func NewNotificationRepository() notification.Repository {
	return &notificationRepository{
		notifications: make(map[string]*notification.Notification),
		preferences:   make(map[string]*notification.NotificationPreference),
	}
}

func prefKey(userID string, t notification.NotificationType) string {
	return userID + "|" + string(t)
}

func cloneNotification(n *notification.Notification) *notification.Notification {
	c := *n
	return &c
}

func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.Must(uuid.NewV7()).String()
	}
	r.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range notifications {
		if n.ID == "" {
			n.ID = uuid.Must(uuid.NewV7()).String()
		}
		r.notifications[n.ID] = cloneNotification(n)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	return cloneNotification(n), nil
}

func (r *notificationRepository) List(ctx context.Context, req notification.ListNotificationsRequest) ([]*notification.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*notification.Notification, 0)
	for _, n := range r.notifications {
		if n.RecipientID != req.UserID || (req.UnreadOnly && n.IsRead) {
			continue
		}
		if req.RecordID != nil && (n.RecordID == nil || *n.RecordID != *req.RecordID) {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := (req.Page - 1) * req.PageSize
	if offset < 0 || offset >= total {
		return []*notification.Notification{}, total, nil
	}
	end := min(offset+req.PageSize, total)
	return matched[offset:end], total, nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.RecipientID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, ids []string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		if n, ok := r.notifications[id]; ok && n.RecipientID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, n := range r.notifications {
		if n.RecipientID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.RecipientID != userID {
		return notification.ErrNotificationNotFound
	}
	delete(r.notifications, id)
	return nil
}

func (r *notificationRepository) UpsertPreference(ctx context.Context, pref *notification.NotificationPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := prefKey(pref.UserID, pref.NotificationType)
	now := time.Now().UTC()
	if existing, ok := r.preferences[key]; ok {
		existing.EmailEnabled = pref.EmailEnabled
		existing.PushEnabled = pref.PushEnabled
		existing.UpdatedAt = now
		return nil
	}

	c := *pref
	if c.ID == "" {
		c.ID = uuid.Must(uuid.NewV7()).String()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	r.preferences[key] = &c
	return nil
}

// IsNotificationEnabled defaults to true when no preference is stored
func (r *notificationRepository) IsNotificationEnabled(ctx context.Context, userID string, notifType notification.NotificationType) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.preferences[prefKey(userID, notifType)]; ok {
		return p.PushEnabled, nil
	}
	return true, nil
}
