package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-spotter/pkg/camera"
	"github.com/teslashibe/go-spotter/pkg/detection"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

func (s *Server) handleDetections(c *fiber.Ctx) error {
	s.detsMu.RLock()
	defer s.detsMu.RUnlock()
	if s.dets == nil {
		return c.JSON([]detection.ObjectDetection{})
	}
	return c.JSON(s.dets)
}

// handleDetect runs the detector on a JPEG request body.
func (s *Server) handleDetect(c *fiber.Ctx) error {
	if s.OnDetect == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "detector not loaded")
	}
	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty body")
	}
	dets, err := s.OnDetect(body)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if dets == nil {
		dets = []detection.ObjectDetection{}
	}
	return c.JSON(dets)
}

func (s *Server) handleAlerts(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]any{})
	}
	return c.JSON(s.history.List())
}

func (s *Server) handleRearm(c *fiber.Ctx) error {
	if s.OnRearm == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "alerts not configured")
	}
	s.OnRearm()
	return c.JSON(fiber.Map{"rearmed": true})
}

// TargetRequest is the body of PUT /api/alerts/target.
type TargetRequest struct {
	Class string `json:"class"`
}

func (s *Server) handleTarget(c *fiber.Ctx) error {
	if s.OnTarget == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "alerts not configured")
	}
	var req TargetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !detection.IsKnownClass(req.Class) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown class "+req.Class)
	}
	if err := s.OnTarget(req.Class); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"target": req.Class})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "camera not configured")
	}
	return c.JSON(s.cameras.ConfigMap())
}

// handleUpdateCamera accepts {"preset": "720p"} and/or field overrides.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "camera not configured")
	}
	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.cameras.UpdateConfig(updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	cfg := s.cameras.GetConfig()
	s.UpdateState(func(st *State) { st.Camera = cfg })
	return c.JSON(s.cameras.ConfigMap())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.Presets())
}

func (s *Server) handleClasses(c *fiber.Ctx) error {
	return c.JSON(detection.COCOClasses)
}
