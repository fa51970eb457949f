package handlers

import (
	"errors"
	"strconv"

	"clash-bot/middleware"
	"clash-bot/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const maxLeaderboardLimit = 100

// API serves health, metrics, the public leaderboard and operator triggers.
type API struct {
	Leaderboard *services.LeaderboardService
	Lifecycle   *services.LifecycleService
	Pinned      *services.PinnedStandings
	Reporter    *services.StandingsReporter
	Clock       clockwork.Clock
	Logger      *logrus.Logger

	// StandingsChannel is where /admin/standings posts when no channel is given.
	StandingsChannel string
}

func SetupRoutes(app *fiber.App, api *API, gatherer prometheus.Gatherer, adminToken string) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/api/leaderboard", api.GetLeaderboard)

	admin := app.Group("/admin", middleware.AdminAuthMiddleware(adminToken, api.Logger))
	admin.Post("/standings", api.PostStandings)
	admin.Post("/pinned", api.RefreshPinned)
	admin.Post("/lifecycle", api.RunLifecycle)
}

// GetLeaderboard returns the active tournament's standings as JSON.
func (a *API) GetLeaderboard(c *fiber.Ctx) error {
	limit := standingsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxLeaderboardLimit)
	}

	st, err := a.Leaderboard.Snapshot(c.UserContext(), a.Clock.Now(), limit)
	if err != nil {
		a.Logger.WithError(err).Error("[API] leaderboard failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build leaderboard"})
	}
	if st == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active tournament"})
	}
	return c.JSON(fiber.Map{
		"tournament": fiber.Map{
			"id":      st.Tournament.ID,
			"name":    st.Tournament.Name,
			"week":    st.Tournament.WeekNumber,
			"endDate": st.Tournament.EndDate,
		},
		"day":           st.Day,
		"timeRemaining": st.TimeRemaining,
		"participants":  st.ParticipantCount,
		"entries":       st.Entries,
	})
}

// PostStandings posts a standings card now, to ?channel= or the standings channel.
func (a *API) PostStandings(c *fiber.Ctx) error {
	channel := c.Query("channel", a.StandingsChannel)
	if a.Reporter == nil || channel == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "standings posting not configured"})
	}
	err := a.Reporter.Post(c.UserContext(), channel)
	if errors.Is(err, services.ErrNoActiveTournament) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		a.Logger.WithError(err).Error("[API] standings post failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"posted": true, "channel": channel})
}

func (a *API) RefreshPinned(c *fiber.Ctx) error {
	if a.Pinned == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "pinned standings not configured"})
	}
	action, err := a.Pinned.Refresh(c.UserContext())
	if err != nil {
		a.Logger.WithError(err).Error("[API] pinned refresh failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"action": action, "messageId": a.Pinned.MessageID()})
}

// RunLifecycle runs one lifecycle tick outside the schedule.
func (a *API) RunLifecycle(c *fiber.Ctx) error {
	if a.Lifecycle == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "lifecycle checks not configured"})
	}
	err := a.Lifecycle.Tick(c.UserContext())
	if errors.Is(err, services.ErrTickInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		a.Logger.WithError(err).Error("[API] lifecycle tick failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true})
}
