package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/tracker"
)

// handleTracksChart renders current centroids as an interactive scatter in
// image coordinates (y grows downward).
func (s *Server) handleTracksChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.tracker.Snapshot()

	data := make([]opts.ScatterData, 0, len(snap))
	for _, obj := range snap {
		data = append(data, opts.ScatterData{
			Name:  strconv.FormatInt(obj.ID, 10),
			Value: []interface{}{obj.Centroid.X, obj.Centroid.Y, len(obj.History)},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tracked objects", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracked object centroids", Subtitle: fmt.Sprintf("objects=%d frame=%d", len(snap), s.tracker.Stats().Frames)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (px)", NameLocation: "middle", NameGap: 30, Inverse: opts.Bool(true)}),
	)
	scatter.AddSeries("centroids", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// trailPoints returns the centroid path of one identity.
func trailPoints(obj tracker.TrackedObject) plotter.XYs {
	pts := make(plotter.XYs, len(obj.History))
	for i, b := range obj.History {
		c := tracker.Centroid(b)
		pts[i] = plotter.XY{X: float64(c.X), Y: float64(c.Y)}
	}
	return pts
}

// handleTracksPlot renders every identity's centroid trail as a PNG.
func (s *Server) handleTracksPlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.tracker.Snapshot()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Track trails (%d objects)", len(snap))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	for i, obj := range snap {
		pts := trailPoints(obj)
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to build trail %d: %v", obj.ID, err))
			return
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(strconv.FormatInt(obj.ID, 10), line, points)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
