package export

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/joseph-ayodele/partlister/internal/entity"
)

// WriteReport writes a Markdown summary of a batch run followed by one section per folder.
func WriteReport(w io.Writer, rows []Row, generatedAt time.Time) error {
	md := markdown.NewMarkdown(w)

	md.H1("Part Listing Report")
	md.PlainText("")

	failed, ai := 0, 0
	summary := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Failed() {
			failed++
			summary = append(summary, []string{r.Folder, "-", "-", "-", "❌ " + truncate(r.Err, 60)})
			continue
		}
		if r.Result.Listing.UsedRealBackend {
			ai++
		}
		summary = append(summary, []string{
			r.Folder,
			orDash(r.Result.PartNumber),
			truncate(r.Result.Listing.Title, 60),
			orDash(formatPrices(r.Result.Listing.SuggestedPrices)),
			status(r.Result),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", generatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Folders", strconv.Itoa(len(rows))},
			{"AI generated", strconv.Itoa(ai)},
			{"Failed", strconv.Itoa(failed)},
		},
	})
	md.PlainText("")

	switch {
	case failed > 0:
		md.Warningf("%d folder(s) could not be processed.", failed)
	case len(rows) > 0 && ai == 0:
		md.Note("No generative backend was used; titles and prices are templated placeholders.")
	}
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	if len(summary) == 0 {
		md.PlainText("No part folders found.")
		md.PlainText("")
		return md.Build()
	}
	md.Table(markdown.TableSet{
		Header: []string{"Folder", "Part Number", "Title", "Prices", "Status"},
		Rows:   summary,
	})
	md.PlainText("")

	for _, r := range rows {
		if r.Failed() {
			continue
		}
		md.H2(r.Folder)
		md.PlainText("")
		writeResult(md, r.Result)
	}
	return md.Build()
}

// WriteResult writes a single generation result as Markdown.
func WriteResult(w io.Writer, res entity.GenerateResult) error {
	md := markdown.NewMarkdown(w)
	md.H1(orDash(res.Listing.Title))
	md.PlainText("")
	writeResult(md, res)
	return md.Build()
}

func writeResult(md *markdown.Markdown, res entity.GenerateResult) {
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Part Number", orDash(res.PartNumber)},
			{"Title", orDash(res.Listing.Title)},
			{"Prices", orDash(formatPrices(res.Listing.SuggestedPrices))},
			{"Model", orDash(res.Listing.Model)},
			{"OCR", res.OCR.Backend + " (" + strconv.Itoa(res.OCR.Confidence) + "%)"},
			{"Images", orDash(joinNames(res.Images))},
		},
	})
	md.PlainText("")

	if e := res.Listing.Meta["error"]; e != "" {
		md.Cautionf("Generation with %s failed, showing the template: %s", res.Listing.Meta["attempted_model"], e)
		md.PlainText("")
	}

	md.H3("Description")
	md.PlainText("")
	md.PlainText(orDash(res.Listing.Description))
	md.PlainText("")

	if len(res.Compatibility) > 0 {
		md.H3("Compatibility")
		md.PlainText("")
		rows := make([][]string, len(res.Compatibility))
		for i, c := range res.Compatibility {
			verified := "no"
			if c.Verified {
				verified = "yes"
			}
			rows[i] = []string{c.Year, c.Make, c.Model, verified}
		}
		md.Table(markdown.TableSet{Header: []string{"Year", "Make", "Model", "Verified"}, Rows: rows})
		md.PlainText("")
	}

	if res.OCR.RawText != "" {
		md.Details("OCR text", res.OCR.RawText)
		md.PlainText("")
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += "`" + n + "`"
	}
	return out
}

func status(res entity.GenerateResult) string {
	switch {
	case res.Listing.Meta["error"] != "":
		return "⚠️ fallback"
	case res.Listing.UsedRealBackend:
		return "✅ " + res.Listing.Model
	default:
		return "📝 template"
	}
}
