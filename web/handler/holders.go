package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bewie03/bubblemap/holders"
	"github.com/bewie03/bubblemap/pkg/blockfrost"
	"github.com/bewie03/bubblemap/pkg/httpkit"
	"github.com/bewie03/bubblemap/web/api"
	"github.com/bewie03/bubblemap/web/handler/bind"
)

const (
	GetHoldersRoute    = http.MethodGet + " " + "/api/policies/{policyID}/holders"
	StreamHoldersRoute = http.MethodGet + " " + "/api/policies/{policyID}/stream"

	writeWait = 10 * time.Second
)

// HolderFinder runs policy lookups
type HolderFinder interface {
	Lookup(ctx context.Context, req holders.Request) (*holders.Result, error)
	Stream(ctx context.Context, req holders.Request, events chan<- holders.Event) (*holders.Result, error)
}

type Holders struct {
	finder   HolderFinder
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHolders creates the holders handler. An allowed origin of "*" accepts any
// websocket origin; no origins keeps the same-origin check.
func NewHolders(finder HolderFinder, log *slog.Logger, allowedOrigins ...string) *Holders {
	h := &Holders{
		finder: finder,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		}
	}

	return h
}

func (h *Holders) AddRoutes(m *http.ServeMux) {
	m.Handle(GetHoldersRoute, httpkit.HandlerFunc(h.GetHolders))
	m.Handle(StreamHoldersRoute, httpkit.HandlerFunc(h.StreamHolders))
}

func (h *Holders) GetHolders(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.HoldersRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	result, err := h.finder.Lookup(r.Context(), req)
	if err != nil {
		return httpkit.JsonError(lookupError(err))
	}

	return httpkit.JSON(bind.HoldersResponse(result))
}

// StreamHolders upgrades to a websocket, sends one progress frame per lifecycle
// event, then the result or error frame, and closes the connection.
// The lookup is cancelled if the client goes away.
func (h *Holders) StreamHolders(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.HoldersRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		httpkit.SetError(r.Context(), err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go discardIncoming(conn, cancel)

	var writeErr error
	send := func(msg api.StreamMessage) {
		if writeErr != nil {
			return
		}
		if writeErr = writeJSON(conn, msg); writeErr != nil {
			cancel()
		}
	}

	events := make(chan holders.Event, 16)
	closer := holders.NewSubscriber(events, holders.OnAny(func(ev holders.Event) {
		if msg, ok := bind.ProgressMessage(ev); ok {
			send(msg)
		}
	}))

	result, err := h.finder.Stream(ctx, req, events)
	close(events)
	closer()

	if err != nil {
		apiErr := lookupError(err)
		httpkit.SetError(r.Context(), apiErr)
		send(bind.ErrorMessage(apiErr))
	} else {
		send(bind.ResultMessage(result))
	}

	if writeErr != nil {
		h.log.DebugContext(r.Context(), "websocket stream ended early", slog.Any("error", writeErr))
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))

	return nil
}

// lookupError maps a lookup failure to an HTTP-safe API error
func lookupError(err error) *api.Error {
	msg := holders.UserMessage(err)

	switch {
	case errors.Is(err, holders.ErrInvalidPolicyID):
		return api.BadRequest(err)
	case holders.IsNotFound(err):
		return api.NotFound(err, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return api.GatewayTimeout(err, msg)
	case errors.Is(err, blockfrost.ErrMissingProjectID), errors.Is(err, context.Canceled):
		return api.InternalServerError(err)
	default:
		return api.BadGateway(err, msg)
	}
}

func writeJSON(conn *websocket.Conn, msg api.StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// discardIncoming reads until the client closes the connection, then cancels the lookup
func discardIncoming(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
