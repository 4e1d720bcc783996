package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"nexiro/internal/domain"
	"nexiro/internal/domain/jsoncfg"
	"nexiro/internal/pipeline"
)

const (
	streamWriteWait = 10 * time.Second
	streamReadWait  = 60 * time.Second
)

// streamMessage is every frame sent on /v1/enhance/stream. Type is "state"
// for transitions, then exactly one "result" or "error".
type streamMessage struct {
	Type    string                `json:"type"`
	State   pipeline.State        `json:"state,omitempty"`
	Account *domain.CreditAccount `json:"account,omitempty"`
	Charged bool                  `json:"charged"`
	Message string                `json:"message,omitempty"`
	Result  *enhanceResponse      `json:"result,omitempty"`
	Error   *enhanceErrorResponse `json:"error,omitempty"`
}

// EnhanceStream reads one enhance payload over a WebSocket and streams the
// pipeline transitions followed by the outcome.
func (a *App) EnhanceStream(w http.ResponseWriter, r *http.Request) {
	identity := a.currentIdentity(r)
	if identity == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	conn, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	conn.SetReadLimit(limit)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))

	var payload jsoncfg.EnhanceJSON
	if err := conn.ReadJSON(&payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			a.Logger.Warn().Err(err).Str("identity", identity).Msg("websocket read failed")
		}
		a.sendFrame(conn, streamMessage{Type: "error", Error: &enhanceErrorResponse{Error: "bad_request", Message: "invalid payload"}})
		return
	}
	req, err := decodeEnhance(payload)
	if err != nil {
		a.sendFrame(conn, streamMessage{Type: "error", Error: &enhanceErrorResponse{Error: "bad_request", Message: err.Error()}})
		return
	}
	account, err := a.Pipeline.Account(r.Context(), identity)
	if err != nil {
		a.Logger.Error().Err(err).Str("identity", identity).Msg("load credit account")
		a.sendFrame(conn, streamMessage{Type: "error", Error: &enhanceErrorResponse{Error: "ledger_unavailable", Message: "credit balance unavailable"}})
		return
	}

	res := a.Pipeline.Run(r.Context(), pipeline.Request{
		Identity: identity,
		Source:   req.Source,
		Style:    req.Style,
		Options:  req.Options,
		Account:  account,
	}, func(e pipeline.Event) {
		snapshot := e.Account
		a.sendFrame(conn, streamMessage{Type: "state", State: e.State, Account: &snapshot, Charged: e.Charged, Message: e.Message})
	})

	if res.State == pipeline.StateSuccess {
		body := resultBody(res)
		a.sendFrame(conn, streamMessage{Type: "result", State: res.State, Charged: res.Charged, Result: &body})
	} else {
		_, kind := resultStatus(res)
		body := resultError(res, kind)
		a.sendFrame(conn, streamMessage{Type: "error", State: res.State, Charged: res.Charged, Error: &body})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteWait))
}

func (a *App) sendFrame(conn *websocket.Conn, msg streamMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		a.Logger.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
	}
}
