// Package router serves live components over HTTP and WebSocket.
//
// A live route answers a plain GET with a server-side render wrapped in the
// route's layout. The same path upgraded to a WebSocket mounts a fresh
// component instance and keeps it alive for the connection: client events
// and internal messages are dispatched to it and the changed data-slot
// regions are pushed back as diffs.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
	"github.com/gabrielmiguelok/intakewizard/pkg/metrics"
	"github.com/gabrielmiguelok/intakewizard/pkg/pool"
	"github.com/gabrielmiguelok/intakewizard/pkg/transport"
)

// Common router errors.
var (
	ErrNilRenderer     = errors.New("component returned nil renderer")
	ErrTooManyEvents   = errors.New("too many events")
	ErrTooManySockets  = errors.New("too many connections")
	ErrComponentPanics = errors.New("component panicked")
)

// Layout wraps a component's markup into a full HTML document for the
// initial HTTP render.
type Layout func(ctx context.Context, w io.Writer, content core.Renderer) error

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler handles errors during request processing.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// LiveRoute defines a route that renders a live component.
type LiveRoute struct {
	Path       string
	Component  func() core.Component
	Layout     Layout
	Middleware []Middleware
}

// RouteOption configures a LiveRoute.
type RouteOption func(*LiveRoute)

// WithLayout sets the layout used for the HTTP render.
func WithLayout(layout Layout) RouteOption {
	return func(r *LiveRoute) {
		r.Layout = layout
	}
}

// WithRouteMiddleware adds middleware to the route.
func WithRouteMiddleware(mw ...Middleware) RouteOption {
	return func(r *LiveRoute) {
		r.Middleware = append(r.Middleware, mw...)
	}
}

// Router handles HTTP routing and live connections.
type Router struct {
	mux          *http.ServeMux
	liveRoutes   map[string]*LiveRoute
	middleware   []Middleware
	errorHandler ErrorHandler

	sessions *LiveViewSessionManager
	sockets  *core.SocketManager

	logger          logging.Logger
	metrics         *metrics.Metrics
	transportConfig *transport.TransportConfig
	wsConfig        *transport.WebSocketConfig
	maxConnections  int
	eventRate       rate.Limit
	eventBurst      int

	conns   sync.WaitGroup
	closing atomic.Bool
	mu      sync.RWMutex
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithMetrics records connection, message and render metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithTransportConfig sets timeouts and buffer sizes for live connections.
func WithTransportConfig(c *transport.TransportConfig) Option {
	return func(r *Router) {
		r.transportConfig = c
	}
}

// WithWebSocketConfig sets the origin policy for live connections.
func WithWebSocketConfig(c *transport.WebSocketConfig) Option {
	return func(r *Router) {
		r.wsConfig = c
	}
}

// WithMaxConnections caps concurrent live connections. Zero means no cap.
func WithMaxConnections(n int) Option {
	return func(r *Router) {
		r.maxConnections = n
	}
}

// WithEventRate limits each connection to perSecond client events with the
// given burst.
func WithEventRate(perSecond float64, burst int) Option {
	return func(r *Router) {
		r.eventRate = rate.Limit(perSecond)
		r.eventBurst = burst
	}
}

// WithErrorHandler sets the handler for HTTP render failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// New creates a new router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		liveRoutes:      make(map[string]*LiveRoute),
		sessions:        NewLiveViewSessionManager(),
		sockets:         core.NewSocketManager(),
		logger:          logging.NopLogger{},
		transportConfig: transport.DefaultTransportConfig(),
		wsConfig:        transport.DefaultWebSocketConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.errorHandler == nil {
		r.errorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
			logging.L(req.Context()).Error("render failed", logging.Err(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	return r
}

// Use adds middleware applied to every route registered afterwards.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Sessions returns the live session manager.
func (r *Router) Sessions() *LiveViewSessionManager {
	return r.sessions
}

// Sockets returns the socket manager.
func (r *Router) Sockets() *core.SocketManager {
	return r.sockets
}

// ConnectionCount returns the number of open live connections.
func (r *Router) ConnectionCount() int {
	return r.sockets.Count()
}

// Live registers a live route.
func (r *Router) Live(path string, component func() core.Component, opts ...RouteOption) {
	route := &LiveRoute{
		Path:      path,
		Component: component,
	}
	for _, opt := range opts {
		opt(route)
	}

	r.mu.Lock()
	r.liveRoutes[path] = route
	r.mu.Unlock()

	r.mux.Handle(path, r.wrap(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.renderLive(w, req, route)
	}), route.Middleware...))
}

// Handle registers a standard HTTP handler.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.wrap(handler))
}

// HandleFunc registers a standard HTTP handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

func (r *Router) wrap(h http.Handler, routeMW ...Middleware) http.Handler {
	for i := len(routeMW) - 1; i >= 0; i-- {
		h = routeMW[i](h)
	}

	r.mu.RLock()
	middleware := make([]Middleware, len(r.middleware))
	copy(middleware, r.middleware)
	r.mu.RUnlock()

	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// renderLive serves the first render or upgrades to a live connection.
func (r *Router) renderLive(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if isWebSocketRequest(req) {
		r.handleWebSocket(w, req, route.Component())
		return
	}

	component := route.Component()
	ctx := req.Context()

	if err := component.Mount(ctx, extractParams(req), extractSession(req)); err != nil {
		r.errorHandler(w, req, err)
		return
	}

	renderer := component.Render(ctx)
	if renderer == nil {
		r.errorHandler(w, req, ErrNilRenderer)
		return
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	var err error
	if route.Layout != nil {
		err = route.Layout(ctx, buf, renderer)
	} else {
		err = renderer.Render(ctx, buf)
	}
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleWebSocket upgrades the request and starts the session loop.
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, component core.Component) {
	if r.closing.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.maxConnections > 0 && r.sockets.Count() >= r.maxConnections {
		r.metrics.RecordError("capacity")
		http.Error(w, ErrTooManySockets.Error(), http.StatusServiceUnavailable)
		return
	}

	ws := transport.NewWebSocketTransport(r.transportConfig, r.wsConfig, r.logger)
	if err := ws.Upgrade(w, req); err != nil {
		if !errors.Is(err, transport.ErrOriginNotAllowed) {
			r.logger.Warn("websocket upgrade failed", logging.Err(err))
		}
		r.metrics.RecordError("upgrade")
		return
	}

	socketID := uuid.NewString()
	socket := core.NewSocket(socketID, NewTransportAdapter(ws))

	session := extractSession(req)
	params := extractParams(req)

	if bc, ok := component.(interface{ SetSocket(*core.Socket) }); ok {
		bc.SetSocket(socket)
	}

	lvSession := r.sessions.Create(socketID, component, params, session)
	lvSession.Transport = ws
	lvSession.Socket = socket
	if r.eventRate > 0 {
		lvSession.limiter = rate.NewLimiter(r.eventRate, r.eventBurst)
	}

	r.sockets.Add(socket)
	r.metrics.ConnectionOpened()

	logger := r.logger.With(
		logging.String("socket", socketID),
		logging.String("component", component.Name()),
	)
	logger.Debug("live connection opened")

	// The connection outlives the upgrade request.
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.ContextWithLogger(ctx, logger)

	r.conns.Add(1)
	go func() {
		defer r.conns.Done()
		defer cancel()
		reason := r.messageLoop(ctx, lvSession)
		r.handleDisconnect(lvSession, reason)
		logger.Debug("live connection closed", logging.String("reason", reason.String()))
	}()
}

// messageLoop owns the component for the lifetime of the connection. It
// returns why the loop ended.
func (r *Router) messageLoop(ctx context.Context, session *LiveViewSession) core.TerminateReason {
	recvCh := session.Transport.Receive()
	infoCh := session.Socket.Info()
	closeCh := session.Transport.CloseChan()

	for {
		select {
		case msg := <-recvCh:
			session.UpdateActivity()
			session.Socket.UpdateActivity()
			r.metrics.MessageReceived(msg.Event)

			switch msg.Event {
			case "heartbeat", "phx_heartbeat":
				r.sendReply(session, msg.Ref, msg.Topic, nil)

			case "phx_join":
				r.handleJoin(ctx, session, msg)

			case "phx_leave":
				return core.TerminateNormal

			default:
				if !session.IsMounted() {
					continue
				}
				if !session.Allow() {
					r.metrics.RecordError("rate_limited")
					r.sendError(session, msg.Ref, msg.Topic, ErrTooManyEvents)
					continue
				}
				if err := r.dispatchEvent(ctx, session, msg); err != nil {
					r.sendError(session, msg.Ref, msg.Topic, err)
					continue
				}
				r.renderAndSendDiff(ctx, session)
				r.sendReply(session, msg.Ref, msg.Topic, nil)
			}

		case info := <-infoCh:
			if !session.IsMounted() {
				continue
			}
			if err := r.safeCall(ctx, func() error {
				return session.Component.HandleInfo(ctx, info)
			}); err != nil {
				logging.L(ctx).Warn("info handler failed", logging.Err(err))
				continue
			}
			r.renderAndSendDiff(ctx, session)

		case <-closeCh:
			if r.closing.Load() {
				return core.TerminateShutdown
			}
			return core.TerminateNormal

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

// handleJoin mounts the component on first join and replies with the full
// render.
func (r *Router) handleJoin(ctx context.Context, session *LiveViewSession, msg transport.Message) {
	component := session.Component

	if joinRef, ok := msg.Payload["join_ref"].(string); ok {
		session.SetJoinRef(joinRef)
	}

	if !session.IsMounted() {
		err := r.safeCall(ctx, func() error {
			return component.Mount(ctx, session.Params, session.Session)
		})
		if err != nil {
			r.sendError(session, msg.Ref, msg.Topic, err)
			return
		}
		session.SetMounted(true)
	}

	html, err := r.render(ctx, session)
	if err != nil {
		r.sendError(session, msg.Ref, msg.Topic, err)
		return
	}

	// Seed slot hashes so the next diff only carries changes.
	buildDiff(session, html)

	r.sendReply(session, msg.Ref, msg.Topic, map[string]any{
		"rendered": map[string]any{
			"s": []string{html},
		},
	})
}

// dispatchEvent dispatches a client event to the component.
func (r *Router) dispatchEvent(ctx context.Context, session *LiveViewSession, msg transport.Message) error {
	payload := msg.Payload
	if payload == nil {
		payload = make(map[string]any)
	}

	return r.safeCall(ctx, func() error {
		return session.Component.HandleEvent(ctx, msg.Event, payload)
	})
}

// safeCall runs fn and turns a panic into ErrComponentPanics.
func (r *Router) safeCall(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.RecordPanic()
			logging.L(ctx).Error("component panic",
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
			)
			err = ErrComponentPanics
		}
	}()
	return fn()
}

func (r *Router) render(ctx context.Context, session *LiveViewSession) (string, error) {
	var html string
	err := r.safeCall(ctx, func() error {
		renderer := session.Component.Render(ctx)
		if renderer == nil {
			return ErrNilRenderer
		}
		buf := pool.GetBuffer()
		defer pool.PutBuffer(buf)
		if err := renderer.Render(ctx, buf); err != nil {
			return err
		}
		html = buf.String()
		return nil
	})
	return html, err
}

// renderAndSendDiff renders the component and pushes the changed slots.
func (r *Router) renderAndSendDiff(ctx context.Context, session *LiveViewSession) {
	start := time.Now()

	html, err := r.render(ctx, session)
	if err != nil {
		r.metrics.RecordError("render")
		logging.L(ctx).Error("render failed", logging.Err(err))
		return
	}

	payload := buildDiff(session, html)
	r.metrics.RecordRender(time.Since(start), payload.Size())

	if payload.IsEmpty() {
		return
	}
	if err := session.Socket.SendDiff(payload); err != nil {
		logging.L(ctx).Debug("diff not delivered", logging.Err(err))
		return
	}
	r.metrics.MessageSent("diff")
}

// handleDisconnect terminates the component and releases the connection.
func (r *Router) handleDisconnect(session *LiveViewSession, reason core.TerminateReason) {
	if !r.sessions.Remove(session.ID) {
		return
	}

	ctx := context.Background()
	if session.IsMounted() {
		r.safeCall(ctx, func() error {
			return session.Component.Terminate(ctx, reason)
		})
	}

	r.sockets.Remove(session.SocketID)
	session.Socket.Close()
	r.metrics.ConnectionClosed()
}

// sendReply sends an ok reply to the client.
func (r *Router) sendReply(session *LiveViewSession, ref, topic string, response map[string]any) {
	if ref == "" {
		return
	}
	r.send(session, transport.Message{
		Ref:   ref,
		Topic: topic,
		Event: "phx_reply",
		Payload: map[string]any{
			"status":   "ok",
			"response": response,
		},
	})
}

// sendError sends an error reply to the client.
func (r *Router) sendError(session *LiveViewSession, ref, topic string, err error) {
	r.metrics.RecordError("event")
	r.send(session, transport.Message{
		Ref:   ref,
		Topic: topic,
		Event: "phx_reply",
		Payload: map[string]any{
			"status": "error",
			"response": map[string]any{
				"reason": err.Error(),
			},
		},
	})
}

func (r *Router) send(session *LiveViewSession, msg transport.Message) {
	if err := session.Transport.Send(msg); err != nil {
		r.logger.Debug("reply not delivered",
			logging.String("socket", session.SocketID),
			logging.String("ref", msg.Ref),
			logging.Err(err),
		)
		return
	}
	r.metrics.MessageSent(msg.Event)
}

// StartReaper closes live connections idle for longer than maxIdle, checking
// every interval until ctx ends.
func (r *Router) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.sockets.CleanupInactive(maxIdle); n > 0 {
					r.logger.Info("closed idle connections", logging.Int("count", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown closes every live connection and waits for their loops to end.
func (r *Router) Shutdown(ctx context.Context) error {
	r.closing.Store(true)
	if err := r.sockets.CloseAll(ctx); err != nil {
		return fmt.Errorf("close connections: %w", err)
	}

	done := make(chan struct{})
	go func() {
		r.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// extractSession collects cookies into the component session.
func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	if id := SessionIDFromContext(req.Context()); id != "" {
		session[SessionIDKey] = id
	}
	return session
}

// extractParams extracts URL query parameters.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}
