package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/chunkpass/chunkpass/pkg/api"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)
}

func writeTitle(w io.Writer, title string) {
	color.New(color.Bold).Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

func writeSummary(w io.Writer, result api.CompileResult) {
	writeTitle(w, "Chunks")
	table := newTable(w)
	table.Header([]string{"Chunk", "Unit", "Changed", "Fingerprint"})
	for _, chunk := range result.Chunks {
		for _, unit := range chunk.Units {
			changed := ""
			if unit.Changed {
				changed = "yes"
			}
			table.Append([]string{chunk.ID, unit.Path, changed, unit.Fingerprint})
		}
	}
	table.Render()
	fmt.Fprintln(w)

	if len(result.Constants) > 0 {
		writeTitle(w, "Constants")
		table = newTable(w)
		table.Header([]string{"Key", "Chunk", "Unit", "Used in"})
		for _, constant := range result.Constants {
			table.Append([]string{constant.Key, constant.Chunk, constant.Unit, strings.Join(constant.UsedIn, ", ")})
		}
		table.Render()
		fmt.Fprintln(w)
	}

	writeTitle(w, "Requires")
	for _, id := range result.AliveRequires {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("alive"), id)
	}
	for _, id := range result.DeadRequires {
		fmt.Fprintf(w, "%s  %s\n", color.YellowString("dead"), id)
	}
	fmt.Fprintf(w, "\n%s changed\n", plural("scope", result.ChangedScopes))
}

func writeInspection(w io.Writer, result api.InspectResult) {
	table := newTable(w)
	table.Header([]string{"Unit", "ESM", "Requires", "Imports", "Dynamic imports", "Invalid requires"})
	for _, unit := range result.Units {
		esm := ""
		if unit.ESM {
			esm = "yes"
		}
		table.Append([]string{
			unit.Path,
			esm,
			strings.Join(unit.Requires, ", "),
			strings.Join(unit.Imports, ", "),
			strings.Join(unit.DynamicImports, ", "),
			strconv.Itoa(len(unit.InvalidRequires)),
		})
	}
	table.Render()

	for _, unit := range result.Units {
		for _, loc := range unit.InvalidRequires {
			fmt.Fprintf(w, "%s %s:%d:%d: require() with a non-string argument\n",
				color.YellowString("warning:"), loc.File, loc.Line, loc.Column)
		}
	}
}
