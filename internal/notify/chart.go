package notify

import (
	"encoding/json"
	"errors"
	"net/url"
)

const defaultChartColor = "rgb(54, 162, 235)"

// ChartClient builds renderable line-chart image URLs against a
// QuickChart-compatible endpoint. The chat platform fetches the URL itself,
// so no request is made here.
type ChartClient struct {
	baseURL string
	color   string
}

// ChartOption configures the client.
type ChartOption func(*ChartClient)

// WithColor overrides the dataset color.
func WithColor(color string) ChartOption {
	return func(c *ChartClient) {
		if color != "" {
			c.color = color
		}
	}
}

// NewChartClient constructs a chart URL builder.
func NewChartClient(baseURL string, opts ...ChartOption) (*ChartClient, error) {
	if baseURL == "" {
		return nil, errors.New("chart client: empty base url")
	}
	client := &ChartClient{baseURL: baseURL, color: defaultChartColor}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type chartDataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor"`
	Fill        bool      `json:"fill"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartSpec struct {
	Type string    `json:"type"`
	Data chartData `json:"data"`
}

// LineChartURL renders a single-dataset line chart spec into an image URL.
// Labels and values must be in chronological order, oldest first.
func (c *ChartClient) LineChartURL(title string, labels []string, values []float64) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", errors.New("chart client: empty base url")
	}
	if len(labels) == 0 || len(labels) != len(values) {
		return "", errors.New("chart client: labels and values must be non-empty and equal length")
	}

	spec := chartSpec{
		Type: "line",
		Data: chartData{
			Labels: labels,
			Datasets: []chartDataset{{
				Label:       title,
				Data:        values,
				BorderColor: c.color,
				Fill:        false,
			}},
		},
	}
	encoded, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	return c.baseURL + "?c=" + url.QueryEscape(string(encoded)), nil
}
