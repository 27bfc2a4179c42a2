package main

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/PaulBabatuyi/wasteConnect/internal/dashboard"
)

type failedMetric struct {
	Metric string `json:"metric"`
	Error  string `json:"error"`
}

type dashboardErrorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Failed  []failedMetric `json:"failed,omitempty"`
}

// getDashboard returns the snapshot as a bare object. When sections fail
// the response lists them instead of reporting zeros.
func (s *Server) getDashboard(c *fiber.Ctx) error {
	snap, err := s.dash.Snapshot(c.UserContext())
	if err == nil {
		return c.JSON(snap)
	}

	log.Printf("dashboard: %v", err)
	resp := dashboardErrorResponse{Message: "Failed to fetch dashboard data"}

	var aggErr *dashboard.AggregationError
	if errors.As(err, &aggErr) {
		for _, f := range aggErr.Failures {
			resp.Failed = append(resp.Failed, failedMetric{Metric: f.Section, Error: f.Err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(resp)
}
