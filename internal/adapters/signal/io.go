package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/remtech/relay/internal/domain"
	"github.com/remtech/relay/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.Hub.Disconnect(id)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(id, c, data)
		}
	}
}

// dispatch validates one inbound frame and routes it. Every failure is
// answered on the originating connection only; the hub keeps serving
// everyone else.
func (ctl *Controller) dispatch(id domain.ConnID, c *wsConn, data []byte) {
	msg, perr := protocol.Parse(data)
	if perr != nil {
		ctl.sendErr(c, perr)
		return
	}

	switch m := msg.(type) {
	case *protocol.Hello:
		ctl.Hub.Hello(id, m.Role)
	case *protocol.RegisterTech:
		perr = ctl.Hub.RegisterTech(id, m.TechID)
	case *protocol.SubscribePresence:
		ctl.Hub.Subscribe(id)
	case *protocol.CallRequest:
		perr = ctl.Hub.CallRequest(id, m.TechID)
	case *protocol.CreateSession:
		perr = ctl.Hub.CreateSession(id, m.SessionID, m.RequestedTechID)
	case *protocol.JoinSession:
		perr = ctl.Hub.Join(id, m.SessionID, m.Role)
	case *protocol.Signal:
		perr = ctl.Hub.RelaySignal(id, m.SessionID, m.SignalType, m.Payload)
	case *protocol.EndSession:
		perr = ctl.Hub.End(id, m.SessionID)
	}

	if perr != nil {
		ctl.sendErr(c, perr)
	}
}

func (ctl *Controller) sendErr(c *wsConn, perr *domain.ProtocolError) {
	if err := c.TrySend(protocol.EncodeError(perr)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("code", perr.Code).Msg("error reply dropped")
	}
}
