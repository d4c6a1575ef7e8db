package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"text/template"

	colors "gopkg.in/go-playground/colors.v1"
)

// Render writes a plain text summary of the report.
func Render(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ENTRY\tMODULES\tNODE_MODULES\tSIZE")
	for _, name := range slices.Sorted(maps.Keys(report.Entries)) {
		entry := report.Entries[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", name, entry.Modules, entry.NodeModules, humanBytes(entry.TotalBytes))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	for _, name := range slices.Sorted(maps.Keys(report.Entries)) {
		entry := report.Entries[name]
		if len(entry.TopInputs) == 0 {
			continue
		}

		fmt.Fprintf(w, "\nLargest modules (%s):\n", name)
		for _, input := range entry.TopInputs {
			fmt.Fprintf(w, "  %-9s %s\n", humanBytes(input.Bytes), input.Path)
		}
	}

	if len(report.Duplicates) > 0 {
		fmt.Fprintf(w, "\nDuplicate packages:\n")
		for _, dup := range report.Duplicates {
			fmt.Fprintf(w, "  %s (entries: %s)\n", dup.Package, strings.Join(dup.Entries, ", "))
			for i, path := range dup.Paths {
				fmt.Fprintf(w, "    %s\n", path)
				if i < len(dup.Chains) && len(dup.Chains[i]) > 0 {
					fmt.Fprintf(w, "      via %s\n", strings.Join(dup.Chains[i], " -> "))
				}
			}
		}
	}

	return nil
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = w.Write(append(data, '\n'))

	return err
}

const (
	svgRowHeight   = 18
	svgLabelWidth  = 380
	svgBarMaxWidth = 320
	svgValueWidth  = 80
	svgPadding     = 8

	// maxRGB caps the ramp short of full intensity so bars stay readable
	// on a white background.
	maxRGB = 240
)

var svgTemplate = template.Must(template.New("scan").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" font-family="monospace" font-size="12">
<rect width="100%" height="100%" fill="white"/>
{{- range .Rows}}
{{- if .Heading}}
<text x="{{.LabelX}}" y="{{.TextY}}" font-weight="bold">{{.Label}}</text>
{{- else}}
<text x="{{.LabelX}}" y="{{.TextY}}">{{.Label}}</text>
<rect x="{{.BarX}}" y="{{.BarY}}" width="{{.BarWidth}}" height="12" fill="{{.Fill}}"/>
<text x="{{.ValueX}}" y="{{.TextY}}">{{.Value}}</text>
{{- end}}
{{- end}}
</svg>
`))

type svgRow struct {
	Label    string
	Value    string
	Fill     string
	Heading  bool
	LabelX   int
	BarX     int
	BarY     int
	BarWidth int
	ValueX   int
	TextY    int
}

type svgDoc struct {
	Width  int
	Height int
	Rows   []svgRow
}

// RenderSVG writes the report as a bar chart, one section per entry, bar
// length and color both tracking module size.
func RenderSVG(w io.Writer, report *Report) error {
	maxBytes := int64(1)
	for _, entry := range report.Entries {
		for _, input := range entry.TopInputs {
			maxBytes = max(maxBytes, input.Bytes)
		}
	}

	doc := svgDoc{Width: svgLabelWidth + svgBarMaxWidth + svgValueWidth + 2*svgPadding}

	y := svgPadding
	for _, name := range slices.Sorted(maps.Keys(report.Entries)) {
		entry := report.Entries[name]

		doc.Rows = append(doc.Rows, svgRow{
			Label:   escapeText(fmt.Sprintf("%s (%d modules, %s)", name, entry.Modules, humanBytes(entry.TotalBytes))),
			Heading: true,
			LabelX:  svgPadding,
			TextY:   y + 13,
		})
		y += svgRowHeight

		for _, input := range entry.TopInputs {
			fraction := float64(input.Bytes) / float64(maxBytes)

			doc.Rows = append(doc.Rows, svgRow{
				Label:    escapeText(shorten(input.Path, 44)),
				Value:    humanBytes(input.Bytes),
				Fill:     rampColor(fraction),
				LabelX:   svgPadding * 2,
				BarX:     svgLabelWidth + svgPadding,
				BarY:     y + 3,
				BarWidth: max(int(fraction*svgBarMaxWidth), 1),
				ValueX:   svgLabelWidth + svgBarMaxWidth + 2*svgPadding,
				TextY:    y + 13,
			})
			y += svgRowHeight
		}

		y += svgRowHeight / 2
	}

	doc.Height = y + svgPadding

	return svgTemplate.Execute(w, doc)
}

// rampColor maps a 0..1 size fraction onto a blue to red ramp, the heaviest
// module renders pure red.
func rampColor(fraction float64) string {
	red := uint8(maxRGB * fraction)
	blue := uint8(maxRGB - maxRGB*fraction)

	hex, err := colors.RGB(red, 0, blue)
	if err != nil {
		return "#808080"
	}

	return hex.ToHEX().String()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// shorten trims long module paths from the left, keeping the informative
// tail.
func shorten(path string, limit int) string {
	if len(path) <= limit {
		return path
	}

	return "..." + path[len(path)-limit+3:]
}

// humanBytes formats byte counts the way bundlers report sizes.
func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
