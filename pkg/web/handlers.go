package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/hub"
	"github.com/teslashibe/go-sapien/pkg/protocol"
	"github.com/teslashibe/go-sapien/pkg/sensor"
)

// ActionInfo describes one entry of the action table.
type ActionInfo struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Accepted is returned for every queued command.
type Accepted struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Code   int    `json:"code"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Dispatcher body.Status     `json:"dispatcher"`
	Active     []string        `json:"active,omitempty"`
	Latches    []string        `json:"latches,omitempty"`
	Sensors    *sensor.Reading `json:"sensors,omitempty"`
	Clients    int             `json:"clients"`
}

// actionRequest accepts the action as a wire code or a name, quoted or not.
type actionRequest struct {
	Action    json.RawMessage `json:"action"`
	Direction bool            `json:"direction"`
	Value     int             `json:"value"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= 500 {
		s.logger.Warn("request failed", "path", c.Path(), "status", code, "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// submitError maps dispatcher errors onto HTTP statuses.
func submitError(err error) error {
	switch {
	case errors.Is(err, body.ErrUnknownAction):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "command queue full")
	case errors.Is(err, body.ErrClosed), errors.Is(err, body.ErrNotStarted):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

func (s *Server) submit(ctx context.Context, cmd body.Command) (Accepted, error) {
	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	queued, err := s.disp.Submit(ctx, cmd)
	if err != nil {
		return Accepted{}, submitError(err)
	}
	return Accepted{ID: queued.ID, Action: queued.Action.String(), Code: int(queued.Action)}, nil
}

// handleBodyAction serves GET /bodyaction?action=14&direction=1&steps=3.
func (s *Server) handleBodyAction(c *fiber.Ctx) error {
	action, err := body.ParseAction(c.Query("action"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	dir, err := parseDirection(c.Query("direction"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	steps, err := strconv.Atoi(c.Query("steps", "0"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "steps must be an integer")
	}

	acc, err := s.submit(c.UserContext(), body.Command{Action: action, Direction: dir, Value: steps})
	if err != nil {
		return err
	}
	return c.JSON(acc)
}

func parseDirection(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	dir, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("direction must be 0 or 1, got %q", v)
	}
	return dir, nil
}

// handleSubmit serves POST /api/actions.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	var req actionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	action, err := body.ParseAction(strings.Trim(string(req.Action), `"`))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	acc, err := s.submit(c.UserContext(), body.Command{Action: action, Direction: req.Direction, Value: req.Value})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(acc)
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.disp.Stop()
	return c.JSON(fiber.Map{"stopped": true})
}

func (s *Server) handleListActions(c *fiber.Ctx) error {
	all := body.Actions()
	out := make([]ActionInfo, len(all))
	for i, a := range all {
		out[i] = ActionInfo{Code: int(a), Name: a.String()}
	}
	return c.JSON(out)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) status() StatusResponse {
	st := StatusResponse{
		Dispatcher: s.disp.Status(),
		Clients:    s.events.ClientCount(),
	}
	if s.outs != nil {
		st.Active = []string{}
		for _, o := range s.outs.Active() {
			st.Active = append(st.Active, o.String())
		}
		snap := s.outs.Snapshot()
		st.Latches = []string{fmt.Sprintf("%#04x", snap[0]), fmt.Sprintf("%#04x", snap[1])}
	}
	if s.feed != nil {
		r := s.feed.Reading()
		st.Sensors = &r
	}
	return st
}

func (s *Server) handleSensors(c *fiber.Ctx) error {
	if s.feed == nil {
		return fiber.NewError(fiber.StatusNotFound, "no sensor feed")
	}
	var data protocol.SensorData
	if err := json.Unmarshal(c.Body(), &data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := s.applySensors(data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.feed.Reading())
}

func (s *Server) applySensors(d protocol.SensorData) error {
	if d.Yaw == nil && d.DistanceMM == nil {
		return errors.New("yaw or distance_mm required")
	}
	if d.Yaw != nil {
		s.feed.SetYaw(*d.Yaw)
	}
	if d.DistanceMM != nil {
		s.feed.SetDistance(*d.DistanceMM)
	}
	return nil
}

// handleEventsWS joins the client to the event hub and greets it with the
// current status.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	msg, err := protocol.NewStatusMessage(s.status())
	if err == nil {
		reply(client, msg)
	}
	client.Run()
}

// handleFrame processes one inbound websocket frame.
func (s *Server) handleFrame(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		replyError(c, err)
		return
	}

	switch msg.Type {
	case protocol.TypeCommand:
		cd, err := msg.GetCommandData()
		if err != nil {
			replyError(c, err)
			return
		}
		action, err := body.ParseAction(cd.Action)
		if err != nil {
			replyError(c, err)
			return
		}
		acc, err := s.submit(context.Background(), body.Command{Action: action, Direction: cd.Direction, Value: cd.Value})
		if err != nil {
			replyError(c, err)
			return
		}
		if out, err := protocol.NewStatusMessage(acc); err == nil {
			reply(c, out)
		}

	case protocol.TypeStop:
		s.disp.Stop()
		if out, err := protocol.NewStatusMessage(s.status()); err == nil {
			reply(c, out)
		}

	case protocol.TypeSensors:
		if s.feed == nil {
			replyError(c, errors.New("no sensor feed"))
			return
		}
		sd, err := msg.GetSensorData()
		if err == nil {
			err = s.applySensors(*sd)
		}
		if err != nil {
			replyError(c, err)
		}

	case protocol.TypePing:
		pd, err := msg.GetPingData()
		if err != nil {
			replyError(c, err)
			return
		}
		if out, err := protocol.NewPongMessage(pd.ID, msg.Timestamp, time.Now().UnixMilli()); err == nil {
			reply(c, out)
		}

	default:
		replyError(c, fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

func reply(c *hub.Client, m *protocol.Message) {
	b, err := m.Bytes()
	if err != nil {
		return
	}
	c.Reply(hub.NewJSONMessage(b))
}

func replyError(c *hub.Client, err error) {
	if m, e := protocol.NewErrorMessage(err); e == nil {
		reply(c, m)
	}
}
