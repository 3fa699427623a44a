package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"allsky.watch/lib/skypos"
)

func printTable(out io.Writer, aircraft []skypos.SkyPosition) {
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"ID", "Flight", "Squawk", "Hex", "Alt km", "Dist km", "Elev", "Az", "Distant"})
	tbl.SetBorder(false)
	tbl.SetAutoWrapText(false)
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, a := range aircraft {
		distant := ""
		if a.Distant {
			distant = "yes"
		}
		tbl.Append([]string{
			a.ID,
			a.Flight,
			a.Squawk,
			a.Hex,
			strconv.FormatFloat(a.AltitudeKm, 'f', 3, 64),
			strconv.FormatFloat(a.DistanceKm, 'f', 3, 64),
			strconv.FormatFloat(a.ElevationDeg, 'f', 1, 64),
			strconv.FormatFloat(a.AzimuthDeg, 'f', 1, 64),
			distant,
		})
	}
	tbl.SetFooter([]string{"", "", "", "", "", "", "", "Visible", strconv.Itoa(len(aircraft))})
	tbl.Render()
}
