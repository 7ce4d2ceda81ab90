package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"pricebot/internal/pricing"
)

// AssetsOptions configure default alert image generation.
type AssetsOptions struct {
	Dir   string
	Force bool
}

var directionColors = map[pricing.Direction]drawing.Color{
	pricing.DirectionUp:   drawing.ColorFromHex("2ecc71"),
	pricing.DirectionDown: drawing.ColorFromHex("e74c3c"),
}

// GenerateAssets renders the up and down alert images. Existing files are kept
// unless Force is set. It returns the paths written.
func (a *App) GenerateAssets(opts AssetsOptions) ([]string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = a.Config.Alerting.AssetsDir
	}
	if dir == "" {
		return nil, errors.New("assets directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	targets := []struct {
		direction pricing.Direction
		name      string
	}{
		{pricing.DirectionUp, a.Config.Alerting.UpImage},
		{pricing.DirectionDown, a.Config.Alerting.DownImage},
	}

	var written []string
	for _, target := range targets {
		if target.name == "" {
			continue
		}
		path := filepath.Join(dir, target.name)
		if !opts.Force {
			if info, err := os.Stat(path); err == nil && info.Size() > 0 {
				a.Logger.Info().Str("path", path).Msg("asset exists; skipping")
				continue
			}
		}
		if err := writeDirectionPNG(path, a.Config.Price.AssetName, target.direction); err != nil {
			return written, fmt.Errorf("render %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeDirectionPNG(path, assetName string, direction pricing.Direction) error {
	x := make([]float64, 12)
	y := make([]float64, 12)
	for i := range x {
		x[i] = float64(i)
		step := float64(i)
		if i%3 == 2 {
			step -= 0.8
		}
		if direction == pricing.DirectionDown {
			step = -step
		}
		y[i] = 10 + step
	}

	color := directionColors[direction]
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s %s", assetName, direction),
		Width:  800,
		Height: 450,
		XAxis:  chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis:  chart.YAxis{Style: chart.Style{Hidden: true}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: string(direction),
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 8,
					FillColor:   color.WithAlpha(64),
				},
				XValues: x,
				YValues: y,
			},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
