package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/nathanieltooley/pokebattle/battle"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream pushes a battle's state to a websocket, first as it is now and then after every
// change. The socket is closed once the battle is over or removed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	battleID := mux.Vars(r)["battleId"]

	// Subscribing first means no change between the lookup and the subscription is missed
	updates, cancel := s.battles.Hub().Subscribe(battleID)
	defer cancel()

	state, err := s.ownedBattle(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := zerolog.Ctx(r.Context()).With().Str("battleId", battleID).Logger()
	logger.Debug().Msg("stream opened")

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if !writeState(conn, state) || state.BattleStatus.Terminal() {
		closeStream(conn)
		return
	}

	for {
		select {
		case <-closed:
			logger.Debug().Msg("stream closed by client")
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case next, ok := <-updates:
			if !ok {
				logger.Debug().Msg("battle removed, closing stream")
				closeStream(conn)
				return
			}
			if !writeState(conn, next) {
				return
			}
			if next.BattleStatus.Terminal() {
				closeStream(conn)
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, state battle.BattleState) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(state) == nil
}

func closeStream(conn *websocket.Conn) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "battle over")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
}

// readUntilClosed drains the client side so control frames are handled. closed is closed once
// the client goes away.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
