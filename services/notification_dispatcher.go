package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/metrics"
	"freshiesAPI/internal/notification"
)

type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// DeliveryStore records the outcome of a dispatch.
type DeliveryStore interface {
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// NotificationDispatcher delivers persisted notifications from a fixed
// worker pool.
type NotificationDispatcher struct {
	store          DeliveryStore
	log            *zap.SugaredLogger
	workers        int
	enqueueTimeout time.Duration
	jobQueue       chan *DispatchJob
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup

	mu           sync.RWMutex
	pushProvider PushProvider
}

type DispatchJob struct {
	Notification *notification.Notification
	Tokens       []notification.DeviceToken
}

func NewNotificationDispatcher(store DeliveryStore, log *zap.SugaredLogger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		store:          store,
		log:            log,
		workers:        5,
		enqueueTimeout: 5 * time.Second,
		jobQueue:       make(chan *DispatchJob, 100),
		stopChan:       make(chan struct{}),
	}
	d.startWorkers()
	return d
}

// SetPushProvider injects the FCM client from main. Without one, jobs are
// marked sent so the in-app list still shows them.
func (d *NotificationDispatcher) SetPushProvider(provider PushProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) provider() PushProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n := job.Notification
	push := d.provider()

	if len(job.Tokens) > 0 && push != nil {
		if err := push.SendPush(ctx, job.Tokens, n.Title, n.Body, n.Data); err != nil {
			d.log.Warnw("push failed", "notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
			metrics.NotificationsDispatched.WithLabelValues(string(notification.StatusFailed)).Inc()
			if err := d.store.MarkNotificationFailed(ctx, n.ID, err.Error()); err != nil {
				d.log.Errorw("failed to mark notification failed", "notification_id", n.ID, "error", err)
			}
			return
		}
	} else {
		d.log.Debugw("skipping push", "notification_id", n.ID, "tokens", len(job.Tokens), "provider_set", push != nil)
	}

	metrics.NotificationsDispatched.WithLabelValues(string(notification.StatusSent)).Inc()
	if err := d.store.MarkNotificationSent(ctx, n.ID); err != nil {
		d.log.Errorw("failed to mark notification sent", "notification_id", n.ID, "error", err)
	}
}

// Dispatch queues n for delivery. It reports false when the queue stayed
// full for the enqueue timeout or the dispatcher is stopping.
func (d *NotificationDispatcher) Dispatch(n *notification.Notification, tokens []notification.DeviceToken) bool {
	job := &DispatchJob{Notification: n, Tokens: tokens}

	select {
	case <-d.stopChan:
		d.log.Warnw("dispatcher stopped, dropping notification", "notification_id", n.ID)
		metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
		return false
	default:
	}

	timer := time.NewTimer(d.enqueueTimeout)
	defer timer.Stop()

	select {
	case d.jobQueue <- job:
		return true
	case <-d.stopChan:
		d.log.Warnw("dispatcher stopped, dropping notification", "notification_id", n.ID)
	case <-timer.C:
		d.log.Warnw("notification queue full, dropping notification", "notification_id", n.ID)
	}
	metrics.NotificationsDispatched.WithLabelValues("dropped").Inc()
	return false
}

// Stop finishes queued jobs and waits for the workers to exit.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.log.Info("stopping notification dispatcher")
		close(d.stopChan)
		d.wg.Wait()
		d.log.Info("notification dispatcher stopped")
	})
}
