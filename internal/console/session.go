package console

import (
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/leandrodaf/uad2midi/sdk/contracts"
)

// session is the state of one console connection. Everything in it is
// discarded when the connection ends.
type session struct {
	id      string
	conn    net.Conn
	writer  *FrameWriter
	router  *Router
	disc    *discovery
	disp    *dispatcher
	log     contracts.Logger
	metrics *Metrics
}

func newSession(conn net.Conn, rules *RuleTable, sink contracts.MIDISender, log contracts.Logger, metrics *Metrics) *session {
	id := uuid.New().String()
	s := &session{
		id:      id,
		conn:    conn,
		writer:  NewFrameWriter(conn),
		router:  NewRouter(rules.Dialect()),
		log:     log.With(log.Field().String("session", id)),
		metrics: metrics,
	}
	tree := NewDeviceTree()
	s.disc = &discovery{
		rules: rules,
		tree:  tree,
		subs:  NewSubscriptionRegistry(),
		out:   s,
		log:   s.log,
	}
	s.disp = &dispatcher{
		rules:   rules,
		tree:    tree,
		sink:    sink,
		out:     s,
		log:     s.log,
		metrics: metrics,
	}
	return s
}

// serve runs discovery and then handles frames until the stream ends. It
// returns the read error, or nil when the console closed the connection.
func (s *session) serve() error {
	s.disc.begin()

	reader := NewFrameReader(s.conn)
	for frame := range reader.Frames() {
		s.handle(frame)
	}
	return reader.Err()
}

func (s *session) handle(frame string) {
	if frame == "" {
		return
	}
	if s.log.Enabled(contracts.DebugLevel) {
		s.log.Debug("Message received from console", s.log.Field().String("frame", frame))
	}

	route, err := s.router.Route(frame)
	if err != nil {
		s.drop(frame, err)
		return
	}
	s.metrics.FramesReceived.WithLabelValues(route.Kind.String()).Inc()

	switch route.Kind {
	case RouteDeviceList:
		s.disc.deviceList(route)
	case RouteDeviceDetail:
		s.disc.deviceDetail(route)
	case RouteInputList:
		s.disc.inputList(route)
	case RouteValueChange:
		if _, err := s.disp.valueChange(route); err != nil {
			s.drop(frame, err)
		}
	}
}

func (s *session) drop(frame string, err error) {
	reason := "malformed"
	switch {
	case errors.Is(err, ErrMissingPath):
		reason = "missing_path"
	case errors.Is(err, ErrMissingData):
		reason = "missing_data"
	}
	s.metrics.FramesDropped.WithLabelValues(reason).Inc()
	s.log.Error("Received invalid JSON response from console",
		s.log.Field().String("frame", frame),
		s.log.Field().Error("error", err))
}

// command implements commander.
func (s *session) command(cmd string) error {
	if s.log.Enabled(contracts.DebugLevel) {
		s.log.Debug("Sending message to console", s.log.Field().String("command", cmd))
	}
	if err := s.writer.WriteFrame(cmd); err != nil {
		s.log.Error("Error while sending message to console",
			s.log.Field().String("command", cmd),
			s.log.Field().Error("error", err))
		return err
	}
	verb, _, _ := strings.Cut(cmd, " ")
	s.metrics.CommandsSent.WithLabelValues(verb).Inc()
	return nil
}
