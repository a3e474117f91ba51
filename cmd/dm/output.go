package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/results"
	"github.com/alfredjeanlab/dogmatch/internal/search"
	"github.com/alfredjeanlab/dogmatch/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printDogTable lists dogs, marking favorites (and the match) in the last
// column so color codes do not upset the alignment.
func printDogTable(w io.Writer, dogs []model.Dog, isFavorite func(string) bool, match *model.Dog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBREED\tAGE\tZIP")
	for _, d := range dogs {
		mark := ui.FavoriteMark(isFavorite(d.ID))
		if match != nil && match.ID == d.ID {
			mark += " " + ui.RenderMatch("match")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\n",
			d.ID,
			ui.Truncate(d.Name, 24),
			ui.Truncate(model.FormatBreedName(d.Breed), 28),
			model.AgeText(d.Age),
			d.ZipCode,
			mark,
		)
	}
	_ = tw.Flush()
}

func printDogDetail(w io.Writer, d model.Dog, favorite bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", d.ID)
	fmt.Fprintf(tw, "Name:\t%s %s\n", d.Name, ui.FavoriteMark(favorite))
	fmt.Fprintf(tw, "Breed:\t%s\n", model.FormatBreedName(d.Breed))
	fmt.Fprintf(tw, "Age:\t%s\n", model.AgeText(d.Age))
	fmt.Fprintf(tw, "Zip:\t%s\n", d.ZipCode)
	if d.Img != "" {
		fmt.Fprintf(tw, "Photo:\t%s\n", d.Img)
	}
	_ = tw.Flush()
}

// pageJSON is the --json form of a result page.
type pageJSON struct {
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
	Sort       string      `json:"sort"`
	Breeds     []string    `json:"breeds,omitempty"`
	ZipCodes   []string    `json:"zip_codes,omitempty"`
	AgeMin     int         `json:"age_min"`
	AgeMax     int         `json:"age_max"`
	Dogs       []model.Dog `json:"dogs"`
}

// printPage shows the loaded page followed by a pagination footer.
func printPage(w io.Writer, snap results.Snapshot, st *search.State) error {
	c := st.Criteria()
	if jsonOutput {
		dogs := snap.Dogs
		if dogs == nil {
			dogs = []model.Dog{}
		}
		return printJSON(w, pageJSON{
			Page:       st.Page(),
			TotalPages: st.TotalPages(),
			Total:      st.Total(),
			Sort:       c.Sort.String(),
			Breeds:     c.Breeds,
			ZipCodes:   c.ZipCodes,
			AgeMin:     c.AgeMin,
			AgeMax:     c.AgeMax,
			Dogs:       dogs,
		})
	}

	if len(snap.Dogs) == 0 {
		fmt.Fprintln(w, "No dogs match these filters.")
	} else {
		printDogTable(w, snap.Dogs, dm.Favorites.IsFavorite, dm.Favorites.Matched())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.RenderMuted(footer(st)))
	return nil
}

func footer(st *search.State) string {
	c := st.Criteria()
	parts := []string{
		fmt.Sprintf("Page %d of %d", st.Page(), st.TotalPages()),
		fmt.Sprintf("%d dogs", st.Total()),
		"sort " + c.Sort.String(),
		fmt.Sprintf("ages %d-%d", c.AgeMin, c.AgeMax),
	}
	if len(c.Breeds) > 0 {
		parts = append(parts, "breeds "+strings.Join(c.Breeds, ", "))
	}
	if len(c.ZipCodes) > 0 {
		parts = append(parts, fmt.Sprintf("%d zip codes", len(c.ZipCodes)))
	}
	var hints []string
	if st.HasPrev() {
		hints = append(hints, "dm prev")
	}
	if st.HasNext() {
		hints = append(hints, "dm next")
	}
	out := strings.Join(parts, " | ")
	if len(hints) > 0 {
		out += " (" + strings.Join(hints, ", ") + ")"
	}
	return out
}

func printLocations(w io.Writer, locs []model.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ZIP\tCITY\tSTATE\tCOUNTY\tLAT\tLON")
	for _, l := range locs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%.4f\n", l.ZipCode, l.City, l.State, l.County, l.Latitude, l.Longitude)
	}
	_ = tw.Flush()
}
