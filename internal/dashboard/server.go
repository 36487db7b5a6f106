package dashboard

import (
	"bufio"
	"encoding/csv"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

type row struct {
	platform string
	hashtags []string
}

// StartServer serves two charts over the metadata table: platform share and
// the most frequent hashtags.
func StartServer(dataFile string, port string) error {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		rows := loadData(dataFile)

		pie := charts.NewPie()
		pie.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: "Platform Share"}),
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		)

		platformCounts := make(map[string]int)
		for _, p := range rows {
			platformCounts[p.platform]++
		}
		var pieItems []opts.PieData
		for k, v := range platformCounts {
			pieItems = append(pieItems, opts.PieData{Name: k, Value: v})
		}
		pie.AddSeries("Posts", pieItems)

		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Top Hashtags"}))

		tagCounts := make(map[string]int)
		for _, p := range rows {
			for _, t := range p.hashtags {
				tagCounts[t]++
			}
		}
		tags := make([]string, 0, len(tagCounts))
		for t := range tagCounts {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tagCounts[tags[i]] > tagCounts[tags[j]] })
		if len(tags) > 20 {
			tags = tags[:20]
		}

		var barY []opts.BarData
		for _, t := range tags {
			barY = append(barY, opts.BarData{Value: tagCounts[t]})
		}
		bar.SetXAxis(tags).AddSeries("Mentions", barY)

		pie.Render(w)
		bar.Render(w)
	})

	return http.ListenAndServe(":"+port, nil)
}

func loadData(path string) []row {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil || len(all) < 2 {
		return nil
	}

	platformIdx, hashtagIdx := -1, -1
	for i, col := range all[0] {
		switch col {
		case "platform":
			platformIdx = i
		case "hashtags":
			hashtagIdx = i
		}
	}

	var rows []row
	for _, rec := range all[1:] {
		var p row
		if platformIdx >= 0 && platformIdx < len(rec) {
			p.platform = rec[platformIdx]
		}
		if hashtagIdx >= 0 && hashtagIdx < len(rec) && rec[hashtagIdx] != "" {
			p.hashtags = strings.Split(rec[hashtagIdx], ",")
		}
		rows = append(rows, p)
	}
	return rows
}
