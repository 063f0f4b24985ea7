package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-mocap/pkg/control"
	"github.com/teslashibe/go-mocap/pkg/hub"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

// handleStatus returns the session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.session.Status())
}

// handleDiagnostics returns the bone mapping report and solver counters
func (s *Server) handleDiagnostics(c *fiber.Ctx) error {
	return c.JSON(s.session.Diagnostics())
}

// handleFeeds returns websocket feed statistics
func (s *Server) handleFeeds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"feeds":   []hub.Stats{s.poseHub.GetStats(), s.overlayHub.GetStats()},
		"control": s.control.GetStats(),
	})
}

// handleCommand applies the request body as a command of type t
func (s *Server) handleCommand(t protocol.MessageType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data json.RawMessage
		if body := c.Body(); len(body) > 0 {
			data = append(json.RawMessage(nil), body...)
		}
		return s.reply(c, &protocol.Message{Type: t, Data: data})
	}
}

// handleStream loads a stream from {"url": ...} or an inline stream document
func (s *Server) handleStream(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	var cmd protocol.LoadStreamCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if cmd.URL == "" && len(cmd.Stream) == 0 {
		cmd.Stream = body
	}
	msg, err := protocol.NewMessage(protocol.TypeLoadStream, cmd)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return s.reply(c, msg)
}

// RigRequest is the request body for swapping the rig
type RigRequest struct {
	URL  string `json:"url"`  // Empty for the procedural rig
	Wait bool   `json:"wait"` // Block until the rig is installed
}

// handleRig starts a rig swap, optionally waiting for the outcome
func (s *Server) handleRig(c *fiber.Ctx) error {
	var req RigRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	if req.Wait {
		if err := s.session.SwapRigSync(c.UserContext(), req.URL); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(s.session.Status())
	}

	msg, err := protocol.NewSwapRigMessage(req.URL)
	if err != nil {
		return err
	}
	c.Status(fiber.StatusAccepted)
	return s.reply(c, msg)
}

// reply dispatches msg and writes the status or error as JSON
func (s *Server) reply(c *fiber.Ctx, msg *protocol.Message) error {
	reply := control.Dispatch(c.UserContext(), s.session, msg, s.rigDone)
	if reply.Type == protocol.TypeError {
		text := "command failed"
		if data, err := reply.GetErrorData(); err == nil {
			text = data.Message
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": text})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(reply.Data)
}
