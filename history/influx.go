// Package history records switch state transitions to InfluxDB, so panel
// activity can be charted next to the rest of the home automation data.
package history

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/imperator765/swpanel/state"
)

const defaultMeasurement = "switch_state"
const connectionMeasurement = "panel_connection"
const writeTimeout = 5 * time.Second

// Recorder writes a point per switch transition and per connectivity change.
// It is wired as a store observer; unchanged snapshots produce no points.
type Recorder struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	client   influxdb2.Client
	writeApi api.WriteAPIBlocking
	logger   *log.Logger

	mu            sync.Mutex
	lastValues    map[string]int
	lastConnected *bool
	ready         bool
}

func (rec *Recorder) Setup() error {
	if len(rec.Host) == 0 || len(rec.Token) == 0 {
		return errors.New("history recorder needs Host and Token")
	}
	if len(rec.Measurement) == 0 {
		rec.Measurement = defaultMeasurement
	}

	rec.client = influxdb2.NewClient(rec.Host, rec.Token)
	rec.writeApi = rec.client.WriteAPIBlocking(rec.Organization, rec.Bucket)
	rec.lastValues = make(map[string]int)
	rec.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "History: ",
		Level:  log.GetLevel(),
	})
	rec.ready = true

	return nil
}

func (rec *Recorder) IsReady() bool {
	return rec.ready
}

// Record diffs the snapshot against the last seen one and writes the
// transitions. Runs on the mutating goroutine, so writes are kept short.
func (rec *Recorder) Record(snap state.Snapshot) {
	if !rec.ready {
		return
	}

	rec.mu.Lock()
	now := time.Now()
	points := []*write.Point{}

	for _, sv := range snap.Switches {
		prev, seen := rec.lastValues[sv.Name]
		if seen && prev == sv.Value {
			continue
		}
		rec.lastValues[sv.Name] = sv.Value
		points = append(points, influxdb2.NewPoint(
			rec.Measurement,
			map[string]string{"switch": sv.Name},
			map[string]interface{}{"state": sv.Value},
			now,
		))
	}

	if rec.lastConnected == nil || *rec.lastConnected != snap.Connected {
		connected := snap.Connected
		rec.lastConnected = &connected
		points = append(points, influxdb2.NewPoint(
			connectionMeasurement,
			map[string]string{},
			map[string]interface{}{"connected": snap.Connected},
			now,
		))
	}
	rec.mu.Unlock()

	if len(points) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := rec.writeApi.WritePoint(ctx, points...)
	if err != nil {
		rec.logger.Error("failed to write history points", "err", err)
	}
}

func (rec *Recorder) Close() {
	if rec.client != nil {
		rec.client.Close()
	}
	rec.ready = false
}
