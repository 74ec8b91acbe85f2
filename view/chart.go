/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package view

import (
	"bytes"
	"html/template"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/humaidq/medtimeline/backend"
)

// ActivityChart renders a bar chart of events per day. It returns an empty
// string when no event has a parseable timestamp.
func ActivityChart(events []backend.TimelineEvent, loc *time.Location) (template.HTML, error) {
	counts := make(map[string]int)
	for _, ev := range events {
		t, ok := ParseTimestamp(ev.Timestamp)
		if !ok {
			continue
		}
		counts[t.In(location(loc)).Format("2006-01-02")]++
	}

	if len(counts) == 0 {
		return "", nil
	}

	days := make([]string, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Strings(days)

	data := make([]opts.BarData, 0, len(days))
	for _, day := range days {
		data = append(data, opts.BarData{Value: counts[day]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:   "100%",
			Height:  "240px",
			ChartID: "activity_chart",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Records per day",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
	)
	bar.SetXAxis(days).AddSeries("Events", data)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}

	// Generated by go-echarts from dates and counts only.
	return template.HTML(buf.String()), nil
}
