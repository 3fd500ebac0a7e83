package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Mb29661/LV418/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryHours = 24
	defaultEnergyHours  = 168
	defaultLocalHours   = 168
	defaultEventHours   = 24

	layoutDate = "2006-01-02"
)

// hoursQuery reads the ?hours=N parameter with a fallback.
func hoursQuery(c *gin.Context, fallback int) int {
	if v, err := strconv.Atoi(c.Query("hours")); err == nil && v > 0 {
		return v
	}
	return fallback
}

// @Summary      Live parameter snapshot
// @Description  Current value of every known parameter code, straight from the vendor cloud.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/status [get]
func (h *Handler) status(c *gin.Context) {
	params := h.services.Pump.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, params)
}

// @Summary      Device record
// @Description  The vendor's own device entry: online state, fault flags, firmware.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/device-status [get]
func (h *Handler) deviceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Pump.DeviceStatus(c.Request.Context()))
}

// Request DTO for a single device write.
type controlRequest struct {
	Code  string `json:"code" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// @Summary      Write one device parameter
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body  controlRequest  true  "Parameter write"
// @Success      200  {object}  map[string]interface{}  "success"
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/control [post]
func (h *Handler) control(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing code or value"})
		return
	}
	ok := h.services.Pump.Control(c.Request.Context(), req.Code, req.Value)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// @Summary      Cloud time series
// @Description  Merged flow/tank/outdoor/power series. Window via ?hours=N or ?from=YYYY-MM-DD&to=YYYY-MM-DD.
// @Tags         history
// @Produce      json
// @Param        hours  query  int     false  "Window in hours"  default(24)
// @Param        from   query  string  false  "Range start (YYYY-MM-DD)"
// @Param        to     query  string  false  "Range end (YYYY-MM-DD)"
// @Success      200  {object}  service.CloudHistory
// @Router       /api/history [get]
func (h *Handler) history(c *gin.Context) {
	start, end, ok := historyRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' or 'to' date; use YYYY-MM-DD"})
		return
	}
	c.JSON(http.StatusOK, h.services.History.Cloud(c.Request.Context(), start, end, ""))
}

// historyRange resolves the requested window: an explicit from/to date pair
// spans whole days; otherwise the last ?hours=N ending now.
func historyRange(c *gin.Context) (start, end time.Time, ok bool) {
	fromQ, toQ := c.Query("from"), c.Query("to")
	if fromQ != "" && toQ != "" {
		from, err1 := time.ParseInLocation(layoutDate, fromQ, time.Local)
		to, err2 := time.ParseInLocation(layoutDate, toQ, time.Local)
		if err1 != nil || err2 != nil {
			return start, end, false
		}
		return from, to.Add(24*time.Hour - time.Second), true
	}
	end = time.Now()
	start = end.Add(-time.Duration(hoursQuery(c, defaultHistoryHours)) * time.Hour)
	return start, end, true
}

// @Summary      Energy usage
// @Tags         history
// @Produce      json
// @Param        hours  query  int  false  "Window in hours"  default(168)
// @Success      200  {object}  service.EnergyReport
// @Router       /api/energy [get]
func (h *Handler) energy(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Energy.Usage(c.Request.Context(), hoursQuery(c, defaultEnergyHours)))
}

// @Summary      Stored readings
// @Description  Hourly readings recorded by the poller, plus table statistics.
// @Tags         history
// @Produce      json
// @Param        hours  query  int  false  "Window in hours"  default(168)
// @Success      200  {object}  map[string]interface{}  "readings, source, db_stats"
// @Router       /api/local-history [get]
func (h *Handler) localHistory(c *gin.Context) {
	ctx := c.Request.Context()

	readings, err := h.services.History.Local(ctx, hoursQuery(c, defaultLocalHours))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("local_history_failed", "err", err)
		}
		readings = nil
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	stats, err := h.services.History.Stats(ctx)
	if err != nil && h.log != nil {
		h.log.Errorw("db_stats_failed", "err", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"readings": readings,
		"source":   "local_db",
		"db_stats": stats,
	})
}

// @Summary      Reading store statistics
// @Tags         history
// @Produce      json
// @Success      200  {object}  models.DBStats
// @Router       /api/db-stats [get]
func (h *Handler) dbStats(c *gin.Context) {
	stats, err := h.services.History.Stats(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("db_stats_failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary      Pump state-change events
// @Tags         history
// @Produce      json
// @Param        hours  query  int  false  "Window in hours"  default(24)
// @Success      200  {object}  map[string]interface{}  "events"
// @Router       /api/events [get]
func (h *Handler) events(c *gin.Context) {
	events, err := h.services.EventLog.List(c.Request.Context(), hoursQuery(c, defaultEventHours))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("events_list_failed", "err", err)
		}
		events = nil
	}
	if events == nil {
		events = []models.PumpEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// @Summary      Backfill readings from cloud history
// @Tags         history
// @Produce      json
// @Success      200  {object}  map[string]int  "imported"
// @Failure      403  {object}  map[string]string
// @Router       /api/import-cloud [get]
func (h *Handler) importCloud(c *gin.Context) {
	imported, err := h.services.History.ImportCloud(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("cloud_import_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cloud import failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}
