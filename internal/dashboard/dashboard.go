// Package dashboard renders a live terminal UI for an in-flight benchmark.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/llmpulse/llmpulse/internal/metrics"
)

// RunConfig holds benchmark parameters for display.
type RunConfig struct {
	Endpoint     string
	Model        string
	Requests     int
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	RequestDelay time.Duration
	ConfigFile   string
}

// Dashboard renders live benchmark metrics until the run ends or the user
// quits with "q".
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	failureList    *widgets.List
	samplePara     *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	runConfig      RunConfig
}

// New creates a Dashboard. shutdownFunc is invoked when the user quits.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Mean Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.samplePara = widgets.NewParagraph()
	d.samplePara.Title = "Last Response"
	d.samplePara.Text = "Waiting for data..."
	d.samplePara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.samplePara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.18,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.36,
			ui.NewCol(0.5, d.failureList),
			ui.NewCol(0.5, d.samplePara),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Wait for Stop() to cancel the context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.collector.Snapshot()
	elapsed := time.Since(d.startTime)

	if snap.Successes > 0 {
		d.latencyHistory = append(d.latencyHistory, snap.MeanLatencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Mean Latency | Current: %.0fms | Min: %.0fms | Max: %.0fms",
			snap.MeanLatencyMs,
			snap.MinLatencyMs,
			snap.MaxLatencyMs,
		)
	}

	d.progressGauge.Percent = progressPercent(snap)
	d.progressGauge.Label = fmt.Sprintf("%d/%d requests", snap.Completed, snap.Total)

	d.summaryPara.Text = fmt.Sprintf(
		"Endpoint: %s\nModel: %s\n%s\nElapsed: %s | Completed: %d | Attempts: %d",
		d.runConfig.Endpoint,
		d.runConfig.Model,
		formatRunParams(d.runConfig),
		elapsed.Round(time.Second),
		snap.Completed,
		snap.Attempts,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.0fms\nMean: %.0fms\nP50:  %.0fms\nP90:  %.0fms\nP99:  %.0fms",
		snap.MinLatencyMs,
		snap.MeanLatencyMs,
		snap.P50LatencyMs,
		snap.P90LatencyMs,
		snap.P99LatencyMs,
	)

	d.failureList.Rows = formatFailureRows(snap.Failed)

	if snap.Sample != "" {
		d.samplePara.Text = snap.Sample
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func progressPercent(snap metrics.Snapshot) int {
	if snap.Total <= 0 {
		return 0
	}
	percent := int(float64(snap.Completed) / float64(snap.Total) * 100)
	if percent > 100 {
		percent = 100
	}
	return percent
}

func formatFailureRows(failed map[string]int64) []string {
	if len(failed) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	kinds := make([]string, 0, len(failed))
	for kind := range failed {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	rows := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) x%d", kind, failed[kind]))
	}
	return rows
}

// formatRunParams formats the benchmark configuration for the summary pane.
func formatRunParams(cfg RunConfig) string {
	parts := []string{
		fmt.Sprintf("Requests: %d", cfg.Requests),
		fmt.Sprintf("Timeout: %s", cfg.Timeout),
		fmt.Sprintf("Retries: %d", cfg.MaxRetries),
	}
	if cfg.RetryDelay > 0 {
		parts = append(parts, fmt.Sprintf("Backoff: %s", cfg.RetryDelay))
	}
	if cfg.RequestDelay > 0 {
		parts = append(parts, fmt.Sprintf("Pacing: %s", cfg.RequestDelay))
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}
	return strings.Join(parts, " | ")
}
