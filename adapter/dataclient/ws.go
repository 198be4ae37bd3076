package dataclient

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// connectionLoop maintains the WebSocket connection, backing off
// exponentially between attempts (capped at ReconnectMaxDelay) instead
// of the teacher's fixed delay, since a single venue outage would
// otherwise hammer the endpoint at a constant rate.
func (cl *Client) connectionLoop() {
	delay := cl.cfg.ReconnectMinDelay

	for {
		select {
		case <-cl.stopCh:
			return
		default:
		}

		conn, err := cl.connect()
		if err != nil {
			log.Error().Err(err).Dur("retry_in", delay).Msg("dataclient: connection failed")
			select {
			case <-cl.stopCh:
				return
			case <-time.After(delay):
			}
			delay = nextDelay(delay, cl.cfg.ReconnectMaxDelay)
			continue
		}

		delay = cl.cfg.ReconnectMinDelay
		cl.resubscribeAll(conn)
		go cl.pingLoop(conn)
		cl.readLoop(conn)
	}
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func (cl *Client) connect() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(cl.cfg.WSURL, nil)
	if err != nil {
		return nil, err
	}

	cl.mu.Lock()
	cl.conn = conn
	cl.connected = true
	cl.mu.Unlock()

	log.Info().Msg("dataclient: connected")
	return conn, nil
}

func (cl *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(cl.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stopCh:
			return
		case <-ticker.C:
			cl.mu.Lock()
			connected := cl.connected && cl.conn == conn
			cl.mu.Unlock()
			if !connected {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		cl.mu.Lock()
		if cl.conn == conn {
			cl.connected = false
		}
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.stopCh:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("dataclient: read error")
			return
		}
		cl.processMessage(message)
	}
}

func sendSubscribe(conn *websocket.Conn, asset string) error {
	return conn.WriteJSON(map[string]interface{}{
		"type":       "subscribe",
		"assets_ids": []string{asset},
		"channel":    "market",
	})
}

func sendUnsubscribe(conn *websocket.Conn, asset string) error {
	return conn.WriteJSON(map[string]interface{}{
		"type":       "unsubscribe",
		"assets_ids": []string{asset},
		"channel":    "market",
	})
}
