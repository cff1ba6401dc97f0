// Package scheduler runs the periodic jobs of the reservation backend.
package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/websocket"
)

// Rollover broadcasts a day-rollover event at institution-local midnight so
// connected clients re-query availability when "today" advances, and drops
// the catalog cache as a staleness backstop.
type Rollover struct {
	cron        *cron.Cron
	broadcaster *websocket.EventBroadcaster
	catalog     *catalog.Service
	loc         *time.Location
}

// NewRollover creates the rollover scheduler in the given location.
func NewRollover(hub *websocket.Hub, cat *catalog.Service, loc *time.Location) *Rollover {
	if loc == nil {
		loc = time.Local
	}

	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Rollover{
		cron:        cron.New(cron.WithLocation(loc)),
		broadcaster: broadcaster,
		catalog:     cat,
		loc:         loc,
	}
}

// Start schedules the midnight job.
func (r *Rollover) Start() error {
	_, err := r.cron.AddFunc("0 0 * * *", r.fire)
	if err != nil {
		return err
	}
	r.cron.Start()
	log.Printf("Day rollover scheduler started (timezone %s)", r.loc)
	return nil
}

// Stop halts the scheduler.
func (r *Rollover) Stop() {
	r.cron.Stop()
}

func (r *Rollover) fire() {
	today := dateutil.Today(r.loc)
	log.Printf("Day rollover: %s", today)

	if r.catalog != nil {
		r.catalog.Invalidate()
	}
	if r.broadcaster != nil {
		r.broadcaster.DayRollover(today)
	}
}
