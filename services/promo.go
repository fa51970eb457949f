package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Uploader stores a rendered image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// PromoImager picks the image attached to a social post. Results posts get a
// rendered podium chart when an uploader is configured; everything else, and any
// failure, uses the social service's own card.
type PromoImager struct {
	uploader Uploader
	logger   *logrus.Logger
}

func NewPromoImager(uploader Uploader, logger *logrus.Logger) *PromoImager {
	return &PromoImager{uploader: uploader, logger: logger}
}

func (p *PromoImager) ImageURL(ctx context.Context, ann Announcement, post SocialPost) string {
	if p == nil || p.uploader == nil || ann.Kind != EventResults || len(ann.Podium) == 0 {
		return post.ImageURL
	}

	png, err := PodiumChart(ann.Tournament.Name, ann.Podium)
	if err != nil {
		p.logger.WithError(err).Warn("[Promo] podium chart failed, using card")
		return post.ImageURL
	}
	key := fmt.Sprintf("promo/%s-%s.png", slug.Make(ann.Tournament.Name), uuid.NewString())
	imageURL, err := p.uploader.Upload(ctx, key, png, "image/png")
	if err != nil {
		p.logger.WithError(err).Warn("[Promo] upload failed, using card")
		return post.ImageURL
	}
	return imageURL
}

// PodiumChart renders the top three final scores as a PNG bar chart.
func PodiumChart(title string, podium []PodiumPlace) ([]byte, error) {
	background := drawing.ColorFromHex("1A1A2E")
	text := drawing.ColorFromHex("FFFFFF")
	fills := []drawing.Color{
		drawing.ColorFromHex("FFD700"),
		drawing.ColorFromHex("C0C0C0"),
		drawing.ColorFromHex("CD7F32"),
	}

	bars := make([]chart.Value, 0, 3)
	for i, p := range podium[:min(3, len(podium))] {
		bars = append(bars, chart.Value{
			Label: p.Name,
			Value: p.Score,
			Style: chart.Style{FillColor: fills[i], StrokeColor: fills[i]},
		})
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: text},
		Width:      800,
		Height:     420,
		BarWidth:   160,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis:      chart.Style{FontColor: text},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: text},
		},
		Bars: bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
