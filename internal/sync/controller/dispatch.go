package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/zap"

	"github.com/opendraw/opendraw-sync/internal/sync/dto"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

// dispatch decodes and routes one inbound frame. Malformed payloads are
// rejected at this boundary before any business logic runs; per-frame
// failures answer with an error ack and keep the connection alive.
func (ctl *Controller) dispatch(ctx context.Context, conn *Conn, raw []byte) {
	var frame dto.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		conn.logger.Warn("malformed frame", zap.Error(err))
		ctl.ackError(conn, 0, model.NewError(model.ErrCodeValidation, "Malformed message"))
		return
	}
	if err := frame.Validate(); err != nil {
		ctl.ackError(conn, frame.ID, model.NewError(model.ErrCodeValidation, "Unknown event"))
		return
	}

	switch frame.Event {
	case dto.EventFileLoad:
		ctl.handleLoad(ctx, conn, frame)
	case dto.EventFileUpdate:
		ctl.handleUpdate(ctx, conn, frame)
	case dto.EventFileVersions:
		ctl.handleVersions(ctx, conn, frame)
	case dto.EventFileRestore:
		ctl.handleRestore(ctx, conn, frame)
	case dto.EventFileDelete:
		ctl.handleDelete(ctx, conn, frame)
	case dto.EventFileCreate:
		ctl.handleCreate(ctx, conn, frame)
	case dto.EventFileRename:
		ctl.handleRename(ctx, conn, frame)
	case dto.EventFileMove:
		ctl.handleMove(ctx, conn, frame)
	case dto.EventSubscribe:
		ctl.handleSubscribe(ctx, conn, frame)
	case dto.EventUnsubscribe:
		ctl.handleUnsubscribe(ctx, conn, frame)
	}
}

// decodePayload unmarshals and validates a frame payload in one step.
func decodePayload[T interface{ Validate() error }](frame dto.Frame) (payload T, err error) {
	if len(frame.Data) > 0 {
		if err = json.Unmarshal(frame.Data, &payload); err != nil {
			return payload, model.NewError(model.ErrCodeValidation, "Malformed payload")
		}
	}
	if err = payload.Validate(); err != nil {
		return payload, &model.Error{
			Code:    model.ErrCodeValidation,
			Message: "Missing required fields",
			Cause:   err,
		}
	}

	return payload, nil
}

// ackSuccess flattens a result into a success acknowledgment frame.
func (ctl *Controller) ackSuccess(conn *Conn, id uint64, result any) {
	fields := map[string]any{}
	if result != nil {
		encoded, err := json.Marshal(result)
		if err == nil {
			err = json.Unmarshal(encoded, &fields)
		}
		if err != nil {
			conn.logger.Error("encode ack", zap.Error(err))
			ctl.ackError(conn, id, nil)
			return
		}
	}
	fields["id"] = id
	fields["event"] = dto.EventAck
	fields["success"] = true

	frame, err := json.Marshal(fields)
	if err != nil {
		conn.logger.Error("marshal ack", zap.Error(err))
		return
	}
	conn.enqueue(frame)
}

// ackError answers a failed operation. Typed errors surface their message
// and retry hint; anything else is a generic failure, logged server-side.
func (ctl *Controller) ackError(conn *Conn, id uint64, err error) {
	ack := dto.ErrorAck{ID: id, Event: dto.EventAck, Error: "Operation failed"}
	if typed, ok := model.AsError(err); ok {
		ack.Error = typed.Message
		ack.RetryAfter = typed.RetryAfterSeconds
	}

	frame, merr := json.Marshal(ack)
	if merr != nil {
		conn.logger.Error("marshal error ack", zap.Error(merr))
		return
	}
	conn.enqueue(frame)
}

// failOp logs and acks one failed operation.
func (ctl *Controller) failOp(conn *Conn, frame dto.Frame, err error, fallback string) {
	if _, typed := model.AsError(err); !typed {
		conn.logger.Error("operation failed", zap.Error(err),
			zap.String("op", frame.Event))
		ctl.ackError(conn, frame.ID, model.NewError(model.ErrCodeStoreUnavailable, fallback))
		return
	}
	ctl.ackError(conn, frame.ID, err)
}

func (ctl *Controller) handleLoad(ctx context.Context, conn *Conn, frame dto.Frame) {
	payload, err := decodePayload[dto.LoadPayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Load(ctx, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to load file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleUpdate(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.UpdatePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Update(ctx, conn.identity, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to save file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)

	// everyone else in the project room learns about the change; the
	// actor's own connection never gets this echo
	ctl.hub.BroadcastToOthers(ctx, payload.ProjectID, conn, dto.EventFileUpdated,
		dto.FileUpdatedEvent{
			FileID:    result.FileID,
			UserID:    conn.identity.UserID,
			Size:      result.Size,
			Timestamp: result.Timestamp,
		})
}

func (ctl *Controller) handleVersions(ctx context.Context, conn *Conn, frame dto.Frame) {
	payload, err := decodePayload[dto.VersionsPayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.ListVersions(ctx, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to load versions")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleRestore(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.RestorePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Restore(ctx, conn.identity, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to restore version")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleDelete(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.DeletePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Delete(ctx, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to delete file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleCreate(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.CreatePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Create(ctx, conn.identity, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to create file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleRename(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.RenamePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Rename(ctx, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to rename file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleMove(ctx context.Context, conn *Conn, frame dto.Frame) {
	if err := ctl.consumeHeavy(conn.identity); err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	payload, err := decodePayload[dto.MovePayload](frame)
	if err != nil {
		ctl.ackError(conn, frame.ID, err)
		return
	}

	result, err := ctl.svc.Move(ctx, payload)
	if err != nil {
		ctl.failOp(conn, frame, err, "Failed to move file")
		return
	}
	ctl.ackSuccess(conn, frame.ID, result)
}

func (ctl *Controller) handleSubscribe(ctx context.Context, conn *Conn, frame dto.Frame) {
	payload, err := decodePayload[dto.RoomPayload](frame)
	if err != nil {
		// subscribe carries no ack; nothing to answer
		conn.logger.Warn("invalid subscribe", zap.Error(err))
		return
	}

	ctl.hub.Join(payload.ProjectID, conn)
	conn.logger.Info("subscribed to project", zap.String("project_id", payload.ProjectID))

	ctl.hub.BroadcastToOthers(ctx, payload.ProjectID, conn, dto.EventUserJoined,
		dto.UserJoinedEvent{
			UserID:    conn.identity.UserID,
			Username:  conn.identity.Username,
			Timestamp: time.Now().UnixMilli(),
		})
}

func (ctl *Controller) handleUnsubscribe(ctx context.Context, conn *Conn, frame dto.Frame) {
	payload, err := decodePayload[dto.RoomPayload](frame)
	if err != nil {
		conn.logger.Warn("invalid unsubscribe", zap.Error(err))
		return
	}

	ctl.hub.Leave(payload.ProjectID, conn)
	conn.logger.Info("unsubscribed from project", zap.String("project_id", payload.ProjectID))

	ctl.hub.BroadcastToOthers(ctx, payload.ProjectID, conn, dto.EventUserLeft,
		dto.UserLeftEvent{
			UserID:    conn.identity.UserID,
			Username:  conn.identity.Username,
			Timestamp: time.Now().UnixMilli(),
		})
}
