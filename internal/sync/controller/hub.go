package controller

import (
	"context"
	"encoding/json"
	"sync"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/opendraw/opendraw-sync/internal/sync/dao"
	"github.com/opendraw/opendraw-sync/internal/sync/dto"
)

// RoomPublisher relays room events across server instances.
type RoomPublisher interface {
	PublishRoom(ctx context.Context, projectID string, payload []byte) error
}

// envelope is the cross-instance broadcast format. Origin lets an
// instance skip its own relayed messages; SenderConnID lets the origin
// instance exclude the actor's connection locally.
type envelope struct {
	Origin       string          `json:"origin"`
	SenderConnID string          `json:"senderConnId"`
	Event        string          `json:"event"`
	Data         json.RawMessage `json:"data"`
}

// Hub tracks project rooms. Membership is transient connection state; a
// reconnecting client re-subscribes from scratch.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Conn]struct{}
	instanceID string
	publisher  RoomPublisher
	logger     logSDK.Logger
}

// NewHub create new Hub
func NewHub(instanceID string, publisher RoomPublisher, logger logSDK.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Conn]struct{}),
		instanceID: instanceID,
		publisher:  publisher,
		logger:     logger,
	}
}

// Join adds the connection to a project room.
func (h *Hub) Join(projectID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[projectID] = room
	}
	room[c] = struct{}{}
}

// Leave removes the connection from a project room.
func (h *Hub) Leave(projectID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(projectID, c)
}

// LeaveAll removes the connection everywhere and returns the project ids
// of rooms it was part of.
func (h *Hub) LeaveAll(c *Conn) (projectIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for projectID, room := range h.rooms {
		if _, ok := room[c]; ok {
			projectIDs = append(projectIDs, projectID)
			h.removeLocked(projectID, c)
		}
	}

	return projectIDs
}

func (h *Hub) removeLocked(projectID string, c *Conn) {
	room, ok := h.rooms[projectID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, projectID)
	}
}

// BroadcastToOthers delivers an event to every room member except the
// sender, locally and — through the pub/sub backbone — on every other
// instance serving the room.
func (h *Hub) BroadcastToOthers(ctx context.Context, projectID string, sender *Conn, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast", zap.Error(err), zap.String("event", event))
		return
	}

	senderID := ""
	if sender != nil {
		senderID = sender.id
	}
	h.deliverLocal(projectID, senderID, event, data)

	if h.publisher == nil {
		return
	}
	relayed, err := json.Marshal(envelope{
		Origin:       h.instanceID,
		SenderConnID: senderID,
		Event:        event,
		Data:         data,
	})
	if err != nil {
		h.logger.Error("marshal envelope", zap.Error(err))
		return
	}
	if err = h.publisher.PublishRoom(ctx, projectID, relayed); err != nil {
		// local delivery already happened; remote members miss this one
		h.logger.Warn("publish room event", zap.Error(err),
			zap.String("project_id", projectID))
	}
}

func (h *Hub) deliverLocal(projectID, senderConnID, event string, data json.RawMessage) {
	frame, err := json.Marshal(dto.Frame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("marshal frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for member := range h.rooms[projectID] {
		if member.id == senderConnID {
			continue
		}
		member.enqueue(frame)
	}
}

// RunRelay consumes the pub/sub backbone and replays broadcasts from
// other instances into local rooms. Blocks until ctx is done.
func (h *Hub) RunRelay(ctx context.Context, cache *dao.Cache) error {
	sub := cache.SubscribeRooms(ctx)
	defer sub.Close() // nolint: errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "relay stopped")
		case msg, ok := <-ch:
			if !ok {
				return errors.Errorf("pubsub channel closed")
			}

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("decode relayed envelope", zap.Error(err))
				continue
			}
			if env.Origin == h.instanceID {
				continue
			}

			projectID := dao.RoomFromChannel(msg.Channel)
			if projectID == "" {
				continue
			}
			h.deliverLocal(projectID, env.SenderConnID, env.Event, env.Data)
		}
	}
}
